package taskqueue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	dispatchKey      = "crop:dispatch"
	defaultDeadline  = 1800 * time.Second
	pollInterval     = time.Second
	claimPageSize    = 16
	processEndpoint  = "/process"
	processTokenVar  = "PROCESS_TOKEN"
	serviceURLVar    = "SERVICE_URL"
	deadlineVar      = "DISPATCH_DEADLINE_SECONDS"
	processTokenName = "X-Process-Token"
)

// ITaskQueue delivers process tasks to the worker endpoint at least once.
// A claimed task is leased for the dispatch deadline: it is rescheduled to
// due-time+deadline before the worker is invoked, so a crashed worker leaves
// the task to come due again, while a slow healthy worker is not redelivered
// before the lease elapses.
type ITaskQueue interface {
	Enqueue(ctx context.Context, jobID string) error
	Ack(ctx context.Context, jobID string) error
	RunDispatcher(ctx context.Context)
}

type taskQueue struct {
	client   *redis.Client
	http     *http.Client
	log      *logrus.Logger
	deadline time.Duration
}

func New(log *logrus.Logger) ITaskQueue {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	log.Infof("Connecting to Redis at %s...", redisAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Errorf("Failed to connect to Redis: %v", err)
	} else {
		log.Info("Successfully connected to Redis")
	}

	deadline := defaultDeadline
	if secs, err := strconv.Atoi(os.Getenv(deadlineVar)); err == nil && secs > 0 {
		deadline = time.Duration(secs) * time.Second
	}

	return &taskQueue{
		client:   client,
		http:     &http.Client{Timeout: deadline},
		log:      log,
		deadline: deadline,
	}
}

// Enqueue schedules the job for immediate dispatch. Re-enqueueing an already
// scheduled job only moves its due time, so duplicate submissions are safe.
func (q *taskQueue) Enqueue(ctx context.Context, jobID string) error {
	err := q.client.ZAdd(ctx, dispatchKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: jobID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}

	q.log.WithFields(logrus.Fields{"job_id": jobID}).Info("job enqueued for dispatch")
	return nil
}

// Ack removes a terminally handled task from the schedule.
func (q *taskQueue) Ack(ctx context.Context, jobID string) error {
	return q.client.ZRem(ctx, dispatchKey, jobID).Err()
}

// RunDispatcher polls for due tasks and invokes the worker endpoint for each.
// Blocks until ctx is done.
func (q *taskQueue) RunDispatcher(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.dispatchDue(ctx)
		}
	}
}

func (q *taskQueue) dispatchDue(ctx context.Context) {
	now := time.Now()

	due, err := q.client.ZRangeByScore(ctx, dispatchKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: claimPageSize,
	}).Result()
	if err != nil {
		q.log.Errorf("Failed to read due dispatch tasks: %v", err)
		return
	}

	for _, jobID := range due {
		// Claim by pushing the due time past the lease before invoking, so a
		// crash mid-invocation still leads to redelivery.
		err := q.client.ZAdd(ctx, dispatchKey, redis.Z{
			Score:  float64(now.Add(q.deadline).Unix()),
			Member: jobID,
		}).Err()
		if err != nil {
			q.log.Errorf("Failed to lease task %s: %v", jobID, err)
			continue
		}

		if terminal := q.invokeWorker(ctx, jobID); terminal {
			if err := q.Ack(ctx, jobID); err != nil {
				q.log.Errorf("Failed to ack task %s: %v", jobID, err)
			}
		}
	}
}

// invokeWorker calls POST /process for one job. Any 2xx or 4xx answer is
// terminal; transport errors and 5xx leave the lease to expire and redeliver.
func (q *taskQueue) invokeWorker(ctx context.Context, jobID string) bool {
	serviceURL := os.Getenv(serviceURLVar)
	if serviceURL == "" {
		q.log.Error("SERVICE_URL is not set; cannot dispatch tasks")
		return false
	}

	body, err := json.Marshal(map[string]string{"job_id": jobID})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL+processEndpoint, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(processTokenName, os.Getenv(processTokenVar))

	resp, err := q.http.Do(req)
	if err != nil {
		q.log.WithFields(logrus.Fields{
			"job_id": jobID,
			"error":  err.Error(),
		}).Warn("worker invocation failed; task will be redelivered")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		q.log.WithFields(logrus.Fields{
			"job_id": jobID,
			"status": resp.StatusCode,
		}).Warn("worker returned server error; task will be redelivered")
		return false
	}

	q.log.WithFields(logrus.Fields{
		"job_id": jobID,
		"status": resp.StatusCode,
	}).Info("task dispatched")
	return true
}

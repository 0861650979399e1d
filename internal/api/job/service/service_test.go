package jobService

import (
	"VideoCropper/internal/api/job"
	jobRepository "VideoCropper/internal/api/job/repository"
	"VideoCropper/internal/cropper"
	"VideoCropper/internal/entity"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"VideoCropper/pkg/utils"
)

type fakeJobStore struct {
	jobs      map[string]entity.Job
	createErr error
	updateErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]entity.Job)}
}

func (f *fakeJobStore) CreateJob(_ context.Context, j entity.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeJobStore) GetJobByID(_ context.Context, id string) (entity.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return entity.Job{}, job.ErrJobNotFound
	}
	return j, nil
}

func (f *fakeJobStore) UpdateStatus(_ context.Context, id string, status entity.JobStatus, resultURI string, errMsg string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	j, ok := f.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	j.Status = status
	j.ResultURI = resultURI
	j.Error = errMsg
	j.UpdatedAt = time.Now()
	f.jobs[id] = j
	return nil
}

func (f *fakeJobStore) ListStalledIDs(_ context.Context, status entity.JobStatus, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	for id, j := range f.jobs {
		if j.Status == status && j.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeJobStore) ListExpiredIDs(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	for id, j := range f.jobs {
		if j.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeJobStore) DeleteJob(_ context.Context, id string) error {
	delete(f.jobs, id)
	return nil
}

type fakeRepository struct {
	store *fakeJobStore
}

func (r *fakeRepository) NewClient(_ bool) (jobRepository.Client, error) {
	return jobRepository.Client{
		Job:      r.store,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type stubCropper struct {
	meta cropper.Meta
	err  error
	runs []string
}

func (c *stubCropper) Run(_ context.Context, inputURI string) (cropper.Meta, error) {
	c.runs = append(c.runs, inputURI)
	return c.meta, c.err
}

type fakeTaskQueue struct {
	enqueued []string
	err      error
}

func (q *fakeTaskQueue) Enqueue(_ context.Context, jobID string) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

func (q *fakeTaskQueue) Ack(_ context.Context, _ string) error { return nil }
func (q *fakeTaskQueue) RunDispatcher(_ context.Context)       {}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(store *fakeJobStore, crop *stubCropper, queue *fakeTaskQueue) IJobService {
	return New(quietLogger(), &fakeRepository{store: store}, crop, queue, utils.New())
}

func setSubmitEnv(t *testing.T) {
	t.Setenv("SERVICE_URL", "http://localhost:3000")
	t.Setenv("PROCESS_TOKEN", "secret")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
}

func TestSubmitJobQueuesAndEnqueues(t *testing.T) {
	setSubmitEnv(t)

	store := newFakeJobStore()
	queue := &fakeTaskQueue{}
	svc := newTestService(store, &stubCropper{}, queue)

	resp, err := svc.SubmitJob(context.Background(), job.SubmitJobRequest{URI: "s3://media/clip.mp4"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "queued", resp.Status)

	stored, ok := store.jobs[resp.JobID]
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusQueued, stored.Status)
	assert.Equal(t, "s3://media/clip.mp4", stored.URI)

	assert.Equal(t, []string{resp.JobID}, queue.enqueued)
}

func TestSubmitJobRejectsUnsupportedScheme(t *testing.T) {
	setSubmitEnv(t)

	store := newFakeJobStore()
	svc := newTestService(store, &stubCropper{}, &fakeTaskQueue{})

	_, err := svc.SubmitJob(context.Background(), job.SubmitJobRequest{URI: "gs://media/clip.mp4"})
	assert.ErrorIs(t, err, job.ErrInvalidURIScheme)
	assert.Empty(t, store.jobs)
}

func TestSubmitJobMissingConfig(t *testing.T) {
	t.Setenv("SERVICE_URL", "")
	t.Setenv("PROCESS_TOKEN", "secret")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	svc := newTestService(newFakeJobStore(), &stubCropper{}, &fakeTaskQueue{})

	_, err := svc.SubmitJob(context.Background(), job.SubmitJobRequest{URI: "s3://media/clip.mp4"})
	assert.ErrorIs(t, err, job.ErrMissingConfig)
}

func TestSubmitJobEnqueueFailure(t *testing.T) {
	setSubmitEnv(t)

	store := newFakeJobStore()
	queue := &fakeTaskQueue{err: errors.New("redis down")}
	svc := newTestService(store, &stubCropper{}, queue)

	_, err := svc.SubmitJob(context.Background(), job.SubmitJobRequest{URI: "s3://media/clip.mp4"})
	assert.ErrorIs(t, err, job.ErrEnqueueJob)
}

func seedJob(store *fakeJobStore, id, uri string, status entity.JobStatus) {
	now := time.Now()
	store.jobs[id] = entity.Job{
		ID:        id,
		URI:       uri,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProcessJobSuccess(t *testing.T) {
	store := newFakeJobStore()
	seedJob(store, "job-1", "s3://media/clip.mp4", entity.JobStatusQueued)

	crop := &stubCropper{meta: cropper.Meta{
		InputURI:  "s3://media/clip.mp4",
		OutputURI: "s3://media/clip_cropped.mp4",
	}}
	svc := newTestService(store, crop, &fakeTaskQueue{})

	err := svc.ProcessJob(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://media/clip.mp4"}, crop.runs)

	stored := store.jobs["job-1"]
	assert.Equal(t, entity.JobStatusDone, stored.Status)
	assert.Equal(t, "s3://media/clip_cropped.mp4", stored.ResultURI)
	assert.Empty(t, stored.Error)
}

func TestProcessJobPipelineFailure(t *testing.T) {
	store := newFakeJobStore()
	seedJob(store, "job-1", "s3://media/clip.mp4", entity.JobStatusQueued)

	runErr := fmt.Errorf("%w: fetching s3://media/clip.mp4: access denied", cropper.ErrDownload)
	svc := newTestService(store, &stubCropper{err: runErr}, &fakeTaskQueue{})

	err := svc.ProcessJob(context.Background(), "job-1")
	assert.ErrorIs(t, err, cropper.ErrDownload)

	// Expected pipeline failures are recorded verbatim.
	stored := store.jobs["job-1"]
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Equal(t, runErr.Error(), stored.Error)
}

func TestProcessJobUnexpectedFailure(t *testing.T) {
	store := newFakeJobStore()
	seedJob(store, "job-1", "s3://media/clip.mp4", entity.JobStatusQueued)

	svc := newTestService(store, &stubCropper{err: errors.New("nil pointer somewhere")}, &fakeTaskQueue{})

	err := svc.ProcessJob(context.Background(), "job-1")
	require.Error(t, err)

	stored := store.jobs["job-1"]
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Equal(t, "unexpected: nil pointer somewhere", stored.Error)
}

func TestProcessJobNotFound(t *testing.T) {
	svc := newTestService(newFakeJobStore(), &stubCropper{}, &fakeTaskQueue{})

	err := svc.ProcessJob(context.Background(), "missing")
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestProcessJobMissingURI(t *testing.T) {
	store := newFakeJobStore()
	seedJob(store, "job-1", "", entity.JobStatusQueued)

	crop := &stubCropper{}
	svc := newTestService(store, crop, &fakeTaskQueue{})

	err := svc.ProcessJob(context.Background(), "job-1")
	assert.ErrorIs(t, err, job.ErrJobMissingURI)
	assert.Empty(t, crop.runs)

	stored := store.jobs["job-1"]
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Equal(t, "Job missing uri", stored.Error)
}

func TestGetJobStatusShapes(t *testing.T) {
	store := newFakeJobStore()
	seedJob(store, "queued", "s3://m/a.mp4", entity.JobStatusQueued)
	seedJob(store, "done", "s3://m/b.mp4", entity.JobStatusDone)
	seedJob(store, "failed", "s3://m/c.mp4", entity.JobStatusFailed)

	d := store.jobs["done"]
	d.ResultURI = "s3://m/b_cropped.mp4"
	store.jobs["done"] = d

	f := store.jobs["failed"]
	f.Error = "download: not found"
	store.jobs["failed"] = f

	svc := newTestService(store, &stubCropper{}, &fakeTaskQueue{})

	queued, err := svc.GetJobStatus(context.Background(), "queued")
	require.NoError(t, err)
	assert.Nil(t, queued.Result)
	assert.Empty(t, queued.Error)

	done, err := svc.GetJobStatus(context.Background(), "done")
	require.NoError(t, err)
	require.NotNil(t, done.Result)
	assert.Equal(t, "s3://m/b_cropped.mp4", done.Result.OutputURI)

	failed, err := svc.GetJobStatus(context.Background(), "failed")
	require.NoError(t, err)
	assert.Nil(t, failed.Result)
	assert.Equal(t, "download: not found", failed.Error)

	_, err = svc.GetJobStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestCleanupRetentionAndStall(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "14")
	t.Setenv("STALLED_MINUTES", "30")

	store := newFakeJobStore()

	// Two expired jobs, one stalled processing job, one healthy job.
	old := time.Now().Add(-20 * 24 * time.Hour)
	for _, id := range []string{"old-1", "old-2"} {
		store.jobs[id] = entity.Job{
			ID: id, URI: "s3://m/" + id, Status: entity.JobStatusDone,
			CreatedAt: old, UpdatedAt: old,
		}
	}
	store.jobs["stalled"] = entity.Job{
		ID: "stalled", URI: "s3://m/stalled.mp4", Status: entity.JobStatusProcessing,
		CreatedAt: time.Now().Add(-2 * time.Hour), UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	seedJob(store, "fresh", "s3://m/fresh.mp4", entity.JobStatusQueued)

	svc := newTestService(store, &stubCropper{}, &fakeTaskQueue{})

	resp, err := svc.Cleanup(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.Deleted)
	assert.Equal(t, 1, resp.StalledMarked)
	assert.NotEmpty(t, resp.Cutoff)
	assert.NotEmpty(t, resp.StalledCutoff)

	_, hasOld := store.jobs["old-1"]
	assert.False(t, hasOld)

	stalled := store.jobs["stalled"]
	assert.Equal(t, entity.JobStatusFailed, stalled.Status)
	assert.Equal(t, "stalled: no update in 30 minutes", stalled.Error)

	fresh := store.jobs["fresh"]
	assert.Equal(t, entity.JobStatusQueued, fresh.Status)
}

func TestCleanupStallScanDisabledByDefault(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "14")
	t.Setenv("STALLED_MINUTES", "0")

	store := newFakeJobStore()
	store.jobs["stalled"] = entity.Job{
		ID: "stalled", URI: "s3://m/s.mp4", Status: entity.JobStatusProcessing,
		CreatedAt: time.Now().Add(-2 * time.Hour), UpdatedAt: time.Now().Add(-2 * time.Hour),
	}

	svc := newTestService(store, &stubCropper{}, &fakeTaskQueue{})

	resp, err := svc.Cleanup(context.Background())
	require.NoError(t, err)

	assert.Zero(t, resp.StalledMarked)
	assert.Empty(t, resp.StalledCutoff)
	assert.Equal(t, entity.JobStatusProcessing, store.jobs["stalled"].Status)
}

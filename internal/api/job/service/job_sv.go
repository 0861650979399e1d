package jobService

import (
	"VideoCropper/internal/api/job"
	"VideoCropper/internal/cropper"
	"VideoCropper/internal/entity"
	contextPkg "VideoCropper/pkg/context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *jobService) SubmitJob(ctx context.Context, req job.SubmitJobRequest) (job.SubmitJobResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if !cropper.IsSupportedURI(req.URI) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"uri":        req.URI,
		}).Warn("Rejected submission with unsupported URI scheme")
		return job.SubmitJobResponse{}, job.ErrInvalidURIScheme
	}

	if missing := missingSubmitConfig(); len(missing) > 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"missing":    missing,
		}).Error("Submission rejected; required configuration is missing")
		return job.SubmitJobResponse{}, job.ErrMissingConfig
	}

	repo, err := s.jobRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return job.SubmitJobResponse{}, err
	}

	jobID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return job.SubmitJobResponse{}, err
	}

	now := time.Now()
	newJob := entity.Job{
		ID:        jobID,
		URI:       req.URI,
		Status:    entity.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Job.CreateJob(ctx, newJob); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create job")
		return job.SubmitJobResponse{}, job.ErrCreateJob
	}

	if err := s.taskQueue.Enqueue(ctx, jobID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     jobID,
			"error":      err.Error(),
		}).Error("Failed to enqueue job for dispatch")
		return job.SubmitJobResponse{}, job.ErrEnqueueJob
	}

	return job.SubmitJobResponse{
		JobID:  jobID,
		Status: string(entity.JobStatusQueued),
	}, nil
}

func (s *jobService) GetJobStatus(ctx context.Context, id string) (job.JobStatusResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.jobRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return job.JobStatusResponse{}, err
	}

	j, err := repo.Job.GetJobByID(ctx, id)
	if err != nil {
		return job.JobStatusResponse{}, err
	}

	resp := job.JobStatusResponse{
		JobID:     j.ID,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}

	if j.Status == entity.JobStatusDone {
		resp.Result = &job.JobResult{OutputURI: j.ResultURI}
	}
	if j.Status == entity.JobStatusFailed {
		resp.Error = j.Error
	}

	return resp, nil
}

func missingSubmitConfig() []string {
	var missing []string
	for _, name := range []string{"SERVICE_URL", "PROCESS_TOKEN", "REDIS_ADDRESS"} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

package jobService

import (
	"VideoCropper/internal/api/job"
	"VideoCropper/internal/cropper"
	"VideoCropper/internal/entity"
	contextPkg "VideoCropper/pkg/context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ProcessJob runs the crop pipeline for one dispatched job and records the
// outcome. Retried deliveries are tolerated: claiming a job that is already
// processing or terminal simply overwrites its status, which is safe because
// the pipeline derives the same output path from the same input URI.
func (s *jobService) ProcessJob(ctx context.Context, jobID string) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.jobRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return err
	}

	j, err := repo.Job.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	if j.URI == "" {
		if err := repo.Job.UpdateStatus(ctx, jobID, entity.JobStatusFailed, "", "Job missing uri"); err != nil {
			return job.ErrUpdateJob
		}
		return job.ErrJobMissingURI
	}

	if err := repo.Job.UpdateStatus(ctx, jobID, entity.JobStatusProcessing, "", ""); err != nil {
		return job.ErrUpdateJob
	}

	meta, runErr := s.cropper.Run(ctx, j.URI)
	if runErr == nil {
		if err := repo.Job.UpdateStatus(ctx, jobID, entity.JobStatusDone, meta.OutputURI, ""); err != nil {
			return job.ErrUpdateJob
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     jobID,
			"output_uri": meta.OutputURI,
		}).Info("job done")
		return nil
	}

	// Expected pipeline failures are recorded verbatim; anything else is
	// flagged so programming errors stand out in the job record.
	errMsg := runErr.Error()
	if !cropper.IsProcessingError(runErr) {
		errMsg = fmt.Sprintf("unexpected: %s", errMsg)
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     jobID,
			"error":      runErr.Error(),
		}).Error("job failed with unexpected error")
	} else {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     jobID,
			"error":      runErr.Error(),
		}).Warn("job failed")
	}

	if err := repo.Job.UpdateStatus(ctx, jobID, entity.JobStatusFailed, "", errMsg); err != nil {
		return job.ErrUpdateJob
	}

	return runErr
}

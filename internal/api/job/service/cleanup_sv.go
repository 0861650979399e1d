package jobService

import (
	"VideoCropper/internal/api/job"
	"VideoCropper/internal/entity"
	contextPkg "VideoCropper/pkg/context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const cleanupPageSize = 500

// Cleanup runs the two reclamation scans: stalled queued/processing jobs are
// forced to failed, and jobs older than the retention window are deleted
// outright. Both scans work in bounded pages, one transaction per page.
func (s *jobService) Cleanup(ctx context.Context) (job.CleanupResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	env := s.utils

	retentionDays := env.EnvInt("RETENTION_DAYS", 14)
	stalledMinutes := env.EnvInt("STALLED_MINUTES", 0)

	now := time.Now()
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	resp := job.CleanupResponse{
		OK:     true,
		Cutoff: cutoff.Format(time.RFC3339),
	}

	if stalledMinutes > 0 {
		stalledCutoff := now.Add(-time.Duration(stalledMinutes) * time.Minute)
		resp.StalledCutoff = stalledCutoff.Format(time.RFC3339)

		marked, err := s.markStalled(ctx, stalledCutoff, stalledMinutes)
		if err != nil {
			return job.CleanupResponse{}, err
		}
		resp.StalledMarked = marked
	}

	deleted, err := s.deleteExpired(ctx, cutoff)
	if err != nil {
		return job.CleanupResponse{}, err
	}
	resp.Deleted = deleted

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"deleted":        resp.Deleted,
		"cutoff":         resp.Cutoff,
		"stalled_marked": resp.StalledMarked,
		"stalled_cutoff": resp.StalledCutoff,
	}).Info("cleanup done")

	return resp, nil
}

func (s *jobService) markStalled(ctx context.Context, cutoff time.Time, stalledMinutes int) (int, error) {
	marked := 0
	message := fmt.Sprintf("stalled: no update in %d minutes", stalledMinutes)

	for _, status := range []entity.JobStatus{entity.JobStatusQueued, entity.JobStatusProcessing} {
		for {
			reader, err := s.jobRepository.NewClient(false)
			if err != nil {
				return marked, err
			}

			ids, err := reader.Job.ListStalledIDs(ctx, status, cutoff, cleanupPageSize)
			if err != nil {
				return marked, err
			}
			if len(ids) == 0 {
				break
			}

			// Marking bumps updated_at, so the next page query no longer
			// matches these rows.
			tx, err := s.jobRepository.NewClient(true)
			if err != nil {
				return marked, err
			}
			for _, id := range ids {
				if err := tx.Job.UpdateStatus(ctx, id, entity.JobStatusFailed, "", message); err != nil {
					tx.Rollback()
					return marked, err
				}
			}
			if err := tx.Commit(); err != nil {
				return marked, err
			}

			marked += len(ids)
		}
	}

	return marked, nil
}

func (s *jobService) deleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0

	for {
		reader, err := s.jobRepository.NewClient(false)
		if err != nil {
			return deleted, err
		}

		ids, err := reader.Job.ListExpiredIDs(ctx, cutoff, cleanupPageSize)
		if err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			break
		}

		tx, err := s.jobRepository.NewClient(true)
		if err != nil {
			return deleted, err
		}
		for _, id := range ids {
			if err := tx.Job.DeleteJob(ctx, id); err != nil {
				tx.Rollback()
				return deleted, err
			}
		}
		if err := tx.Commit(); err != nil {
			return deleted, err
		}

		deleted += len(ids)
	}

	return deleted, nil
}

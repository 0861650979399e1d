package jobRepository

import (
	"VideoCropper/internal/api/job"
	"VideoCropper/internal/entity"
	contextPkg "VideoCropper/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type JobDB struct {
	ID        sql.NullString `db:"id"`
	URI       sql.NullString `db:"uri"`
	Status    sql.NullString `db:"status"`
	ResultURI sql.NullString `db:"result_uri"`
	Error     sql.NullString `db:"error"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *jobRepository) makeJob(row JobDB) entity.Job {
	return entity.Job{
		ID:        row.ID.String,
		URI:       row.URI.String,
		Status:    entity.JobStatus(row.Status.String),
		ResultURI: row.ResultURI.String,
		Error:     row.Error.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (r *jobRepository) CreateJob(c context.Context, j entity.Job) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         j.ID,
		"uri":        j.URI,
		"status":     string(j.Status),
		"result_uri": j.ResultURI,
		"error":      j.Error,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateJob")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating job")

		return err
	}

	return nil
}

func (r *jobRepository) GetJobByID(c context.Context, id string) (entity.Job, error) {
	requestID := contextPkg.GetRequestID(c)
	var row JobDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetJobByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetJobByID named query preparation err")

		return entity.Job{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"job_id":     id,
			}).Warn("GetJobByID no rows found")
			return entity.Job{}, job.ErrJobNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetJobByID execution err")
		return entity.Job{}, err
	}

	return r.makeJob(row), nil
}

func (r *jobRepository) UpdateStatus(c context.Context, id string, status entity.JobStatus, resultURI string, errMsg string) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         id,
		"status":     string(status),
		"result_uri": resultURI,
		"error":      errMsg,
		"updated_at": time.Now(),
	}

	query, args, err := sqlx.Named(queryUpdateStatus, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateStatus named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
			"error":      err.Error(),
		}).Error("Database error when updating job status")
		return err
	}

	return nil
}

func (r *jobRepository) ListStalledIDs(c context.Context, status entity.JobStatus, cutoff time.Time, limit int) ([]string, error) {
	requestID := contextPkg.GetRequestID(c)
	var ids []string

	argsKV := map[string]interface{}{
		"status": string(status),
		"cutoff": cutoff,
		"limit":  limit,
	}

	query, args, err := sqlx.Named(queryListStalledIDs, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListStalledIDs named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &ids, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListStalledIDs execution err")
		return nil, err
	}

	return ids, nil
}

func (r *jobRepository) ListExpiredIDs(c context.Context, cutoff time.Time, limit int) ([]string, error) {
	requestID := contextPkg.GetRequestID(c)
	var ids []string

	argsKV := map[string]interface{}{
		"cutoff": cutoff,
		"limit":  limit,
	}

	query, args, err := sqlx.Named(queryListExpiredIDs, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListExpiredIDs named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &ids, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListExpiredIDs execution err")
		return nil, err
	}

	return ids, nil
}

func (r *jobRepository) DeleteJob(c context.Context, id string) error {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryDeleteJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteJob named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
			"error":      err.Error(),
		}).Error("Database error when deleting job")
		return err
	}

	return nil
}

package jobRepository

const (
	queryCreateJob = `
		INSERT INTO crop_jobs (
			id,
			uri,
			status,
			result_uri,
			error,
			created_at,
			updated_at
		) VALUES (
			:id,
			:uri,
			:status,
			:result_uri,
			:error,
			:created_at,
			:updated_at
		)
	`

	queryGetJobByID = `
		SELECT
			id,
			uri,
			status,
			result_uri,
			error,
			created_at,
			updated_at
		FROM crop_jobs
		WHERE id = :id
	`

	queryUpdateStatus = `
		UPDATE crop_jobs
		SET
			status = :status,
			result_uri = :result_uri,
			error = :error,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryListStalledIDs = `
		SELECT id
		FROM crop_jobs
		WHERE
			status = :status
			AND updated_at < :cutoff
		ORDER BY updated_at ASC
		LIMIT :limit
	`

	queryListExpiredIDs = `
		SELECT id
		FROM crop_jobs
		WHERE created_at < :cutoff
		ORDER BY created_at ASC
		LIMIT :limit
	`

	queryDeleteJob = `
		DELETE FROM crop_jobs
		WHERE id = :id
	`
)

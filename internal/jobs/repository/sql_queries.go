package repository

const (
	createJobQuery = `INSERT INTO pipeline_jobs (job_id, input_s3_key, input_bucket, output_s3_key, output_bucket,
					scenario, parts, transcode_params, status, error, enqueued_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', now()) RETURNING *`
	getJobByIDQuery = `SELECT job_id, input_s3_key, input_bucket, output_s3_key, output_bucket, scenario, parts,
					transcode_params, status, error, enqueued_at, started_at, completed_at
					FROM pipeline_jobs WHERE job_id = $1`
	listJobsQuery = `SELECT job_id, input_s3_key, input_bucket, output_s3_key, output_bucket, scenario, parts,
					transcode_params, status, error, enqueued_at, started_at, completed_at
					FROM pipeline_jobs ORDER BY enqueued_at DESC OFFSET $1 LIMIT $2`
	getTotalJobsQuery    = `SELECT COUNT(job_id) FROM pipeline_jobs`
	updateJobStatusQuery = `UPDATE pipeline_jobs
					SET status = $1,
					    error = COALESCE(nullif($2, ''), error),
					    started_at = CASE WHEN $1 = 'in_progress' THEN now() ELSE started_at END,
					    completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN now() ELSE completed_at END
					WHERE job_id = $3`
)

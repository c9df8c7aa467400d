package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wilsonfonseca/golem/internal/jobs"
	"github.com/wilsonfonseca/golem/internal/models"
)

type jobsRepo struct {
	db *sqlx.DB
}

func NewJobsRepo(db *sqlx.DB) jobs.Repository {
	return &jobsRepo{
		db: db,
	}
}

func (r *jobsRepo) CreateJob(ctx context.Context, job *models.PipelineJob) (*models.PipelineJob, error) {
	created := &models.PipelineJob{}
	if err := r.db.QueryRowxContext(
		ctx,
		createJobQuery,
		job.JobID,
		job.InputS3Key,
		job.InputBucket,
		job.OutputS3Key,
		job.OutputBucket,
		job.Scenario,
		job.Parts,
		job.Transcode,
		job.Status,
	).StructScan(created); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return created, nil
}

func (r *jobsRepo) GetJobByID(ctx context.Context, jobID string) (*models.PipelineJob, error) {
	job := &models.PipelineJob{}
	if err := r.db.GetContext(ctx, job, getJobByIDQuery, jobID); err != nil {
		return nil, fmt.Errorf("failed to get job by id: %w", err)
	}
	return job, nil
}

func (r *jobsRepo) ListJobs(ctx context.Context, limit, offset int) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalJobsQuery); err != nil {
		return nil, fmt.Errorf("failed to get total jobs count: %w", err)
	}
	if totalCount == 0 {
		return &models.JobList{
			Jobs:       make([]*models.PipelineJob, 0),
			TotalCount: 0,
		}, nil
	}
	rows, err := r.db.QueryxContext(ctx, listJobsQuery, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()
	var list = make([]*models.PipelineJob, 0, limit)
	for rows.Next() {
		var job models.PipelineJob
		if err = rows.StructScan(&job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		list = append(list, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return &models.JobList{
		Jobs:       list,
		TotalCount: totalCount,
	}, nil
}

func (r *jobsRepo) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	if _, err := r.db.ExecContext(ctx, updateJobStatusQuery, status, errMsg, jobID); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

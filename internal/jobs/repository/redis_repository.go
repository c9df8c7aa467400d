package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/wilsonfonseca/golem/internal/jobs"
	"github.com/wilsonfonseca/golem/internal/models"
)

const jobStatusPrefix = "pipeline:job:"

type jobsRedisRepo struct {
	redisClient *redis.Client
}

func NewJobsRedisRepo(redisClient *redis.Client) jobs.RedisRepository {
	return &jobsRedisRepo{
		redisClient: redisClient,
	}
}

func (r *jobsRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.PipelineJob) error {
	job.Status = models.JobStatusQueued
	job.EnqueuedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, jobStatusPrefix+job.JobID, "status", string(job.Status), "job_data", string(data))
	pipe.RPush(ctx, key, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (r *jobsRedisRepo) DequeueJob(ctx context.Context, key string) (*models.PipelineJob, error) {
	res, err := r.redisClient.BLPop(ctx, 0*time.Second, key).Result()
	if err != nil {
		return nil, err
	}
	job := &models.PipelineJob{}
	if err = json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("error unmarshalling job: %w", err)
	}
	job.StartedAt = time.Now()
	job.Status = models.JobStatusProcessing
	if err := r.UpdateStatus(ctx, job.JobID, models.JobStatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("error updating job status: %w", err)
	}
	return job, nil
}

func (r *jobsRedisRepo) GetJobStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	status, err := r.redisClient.HGet(ctx, jobStatusPrefix+jobID, "status").Result()
	if err != nil {
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return models.JobStatus(status), nil
}

func (r *jobsRedisRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	statusKey := jobStatusPrefix + jobID

	jobData, err := r.redisClient.HGet(ctx, statusKey, "job_data").Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job models.PipelineJob
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	job.Status = status
	job.Error = errMsg
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		job.CompletedAt = time.Now()
	}

	updated, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal updated job: %w", err)
	}

	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, statusKey, "status", string(status))
	pipe.HSet(ctx, statusKey, "job_data", string(updated))

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

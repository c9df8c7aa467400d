package usecase

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/jobs"
	"github.com/wilsonfonseca/golem/internal/models"
	"github.com/wilsonfonseca/golem/pkg/logger"
	"github.com/wilsonfonseca/golem/pkg/utils"
)

type jobsUC struct {
	cfg       *config.Config
	jobsRepo  jobs.Repository
	redisRepo jobs.RedisRepository
	awsRepo   jobs.AWSRepository
	logger    logger.Logger
}

func NewJobsUseCase(
	cfg *config.Config,
	jobsRepo jobs.Repository,
	redisRepo jobs.RedisRepository,
	awsRepo jobs.AWSRepository,
	log logger.Logger,
) jobs.UseCase {
	return &jobsUC{
		cfg:       cfg,
		jobsRepo:  jobsRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		logger:    log,
	}
}

func (u *jobsUC) SubmitJob(ctx context.Context, input *models.JobSubmitInput) (*models.PipelineJob, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("SubmitJob - ValidateStruct error: %v", err)
		return nil, fmt.Errorf("invalid input: %v", err)
	}
	parts := input.Parts
	if parts == 0 {
		parts = 1
	}
	job := &models.PipelineJob{
		JobID:        uuid.New().String(),
		InputS3Key:   input.InputS3Key,
		InputBucket:  u.cfg.S3.InputBucket,
		OutputS3Key:  fmt.Sprintf("processed/%s/%s", input.Scenario, path.Base(input.InputS3Key)),
		OutputBucket: u.cfg.S3.OutputBucket,
		Scenario:     input.Scenario,
		Parts:        parts,
		Transcode:    input.Transcode,
		Status:       models.JobStatusQueued,
	}
	job, err := u.jobsRepo.CreateJob(ctx, job)
	if err != nil {
		u.logger.Errorf("SubmitJob - CreateJob error: %v", err)
		return nil, err
	}
	if err := u.redisRepo.EnqueueJob(ctx, u.cfg.Redis.JobQueueKey, job); err != nil {
		u.logger.Errorf("SubmitJob - EnqueueJob error: %v", err)
		return nil, err
	}
	u.logger.Infof("job %s queued for %s (%s)", job.JobID, job.InputS3Key, job.Scenario)
	return job, nil
}

func (u *jobsUC) GetJob(ctx context.Context, jobID string) (*models.PipelineJob, error) {
	job, err := u.jobsRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	// the redis hash is fresher than the row while the job is running
	if status, err := u.redisRepo.GetJobStatus(ctx, jobID); err == nil && status != "" {
		job.Status = status
	}
	return job, nil
}

func (u *jobsUC) ListJobs(ctx context.Context, limit, offset int) (*models.JobList, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.jobsRepo.ListJobs(ctx, limit, offset)
}

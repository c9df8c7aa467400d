package jobs

import (
	"context"

	"github.com/wilsonfonseca/golem/internal/models"
)

type RedisRepository interface {
	EnqueueJob(ctx context.Context, key string, job *models.PipelineJob) error
	DequeueJob(ctx context.Context, key string) (*models.PipelineJob, error)
	GetJobStatus(ctx context.Context, jobID string) (models.JobStatus, error)
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
}

package jobs

import (
	"context"

	"github.com/wilsonfonseca/golem/internal/models"
)

type Repository interface {
	CreateJob(ctx context.Context, job *models.PipelineJob) (*models.PipelineJob, error)
	GetJobByID(ctx context.Context, jobID string) (*models.PipelineJob, error)
	ListJobs(ctx context.Context, limit, offset int) (*models.JobList, error)
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
}

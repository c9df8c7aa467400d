package jobs

import (
	"context"

	"github.com/wilsonfonseca/golem/internal/models"
)

type UseCase interface {
	SubmitJob(ctx context.Context, input *models.JobSubmitInput) (*models.PipelineJob, error)
	GetJob(ctx context.Context, jobID string) (*models.PipelineJob, error)
	ListJobs(ctx context.Context, limit, offset int) (*models.JobList, error)
}

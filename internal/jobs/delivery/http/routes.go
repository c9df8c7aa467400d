package http

import (
	"github.com/labstack/echo/v4"

	"github.com/wilsonfonseca/golem/internal/jobs"
)

func MapJobsRoutes(jobsGroup *echo.Group, h jobs.Handlers) {
	jobsGroup.POST("", h.SubmitJob())
	jobsGroup.GET("", h.ListJobs())
	jobsGroup.GET("/:job_id", h.GetJob())
}

package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wilsonfonseca/golem/internal/jobs"
	"github.com/wilsonfonseca/golem/internal/models"
)

type jobsHandler struct {
	jobsUC jobs.UseCase
}

func NewJobsHandler(jobsUC jobs.UseCase) jobs.Handlers {
	return &jobsHandler{
		jobsUC: jobsUC,
	}
}

func (h *jobsHandler) SubmitJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.JobSubmitInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.jobsUC.SubmitJob(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusAccepted, job)
	}
}

func (h *jobsHandler) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("job_id")
		if jobID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		job, err := h.jobsUC.GetJob(c.Request().Context(), jobID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *jobsHandler) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))
		list, err := h.jobsUC.ListJobs(c.Request().Context(), limit, offset)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, list)
	}
}

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jobsHttp "github.com/wilsonfonseca/golem/internal/jobs/delivery/http"
	jobsRepository "github.com/wilsonfonseca/golem/internal/jobs/repository"
	jobsUsecase "github.com/wilsonfonseca/golem/internal/jobs/usecase"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	jRepo := jobsRepository.NewJobsRepo(s.db)
	jRedisRepo := jobsRepository.NewJobsRedisRepo(s.redisClient)
	jAWSRepo := jobsRepository.NewAwsRepository(s.s3Client)

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, jRepo, jRedisRepo, jAWSRepo, s.logger)
	jobsHandlers := jobsHttp.NewJobsHandler(jobsUC)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	jobsGroup := v1.Group("/jobs")

	jobsHttp.MapJobsRoutes(jobsGroup, jobsHandlers)
	health.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}

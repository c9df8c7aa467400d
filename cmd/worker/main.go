package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/jobs/repository"
	"github.com/wilsonfonseca/golem/internal/pipeline"
	"github.com/wilsonfonseca/golem/internal/worker"
	"github.com/wilsonfonseca/golem/pkg/db/aws"
	"github.com/wilsonfonseca/golem/pkg/db/postgres"
	clientRedis "github.com/wilsonfonseca/golem/pkg/db/redis"
	"github.com/wilsonfonseca/golem/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")

	s3Client, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	var invoker pipeline.Invoker
	if cfg.Container.Image != "" {
		sandbox, err := worker.NewContainerdInvoker(cfg.Container)
		if err != nil {
			appLogger.Fatalf("could not connect to containerd: %s", err)
		}
		defer sandbox.Close()
		invoker = sandbox
	} else {
		local := worker.NewProcessInvoker(cfg.Pipeline.WorkerCommand, cfg.Pipeline.WorkerCPUPercent)
		defer local.Close()
		invoker = local
	}

	jobsRepo := repository.NewJobsRepo(psqlDB)
	redisRepo := repository.NewJobsRedisRepo(redisClient)
	awsRepo := repository.NewAwsRepository(s3Client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	w := worker.NewWorker(cfg, appLogger, redisRepo, jobsRepo, awsRepo, invoker)
	w.Start(ctx)
	w.Wait()
}

package worker

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/jobs"
	"github.com/wilsonfonseca/golem/internal/models"
	"github.com/wilsonfonseca/golem/internal/pipeline"
	"github.com/wilsonfonseca/golem/pkg/logger"
	"github.com/wilsonfonseca/golem/pkg/utils"
)

const cpuCheckInterval = 10 * time.Second

// Worker consumes pipeline jobs from the queue and drives the composer for
// each one inside a private run directory.
type Worker struct {
	logger    logger.Logger
	redisRepo jobs.RedisRepository
	jobsRepo  jobs.Repository
	awsRepo   jobs.AWSRepository
	invoker   pipeline.Invoker
	cfg       *config.Config
	wg        sync.WaitGroup
}

func NewWorker(
	cfg *config.Config,
	logger logger.Logger,
	redisRepo jobs.RedisRepository,
	jobsRepo jobs.Repository,
	awsRepo jobs.AWSRepository,
	invoker pipeline.Invoker,
) *Worker {
	return &Worker{
		logger:    logger,
		redisRepo: redisRepo,
		jobsRepo:  jobsRepo,
		awsRepo:   awsRepo,
		invoker:   invoker,
		cfg:       cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting worker")
	for i := 0; i < w.cfg.Worker.WorkerCount; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if canAcceptJob, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !canAcceptJob {
				w.logger.Infof("CPU usage %.2f%% too high, waiting...", usage)
				time.Sleep(cpuCheckInterval)
				continue
			}
			job, err := w.redisRepo.DequeueJob(ctx, w.cfg.Redis.JobQueueKey)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				w.logger.Errorf("failed to dequeue job: %v", err)
				continue
			}
			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *models.PipelineJob) {
	w.logger.Infof("processing job %s: %s (%s)", job.JobID, job.InputS3Key, job.Scenario)
	if err := w.jobsRepo.UpdateJobStatus(ctx, job.JobID, models.JobStatusProcessing, ""); err != nil {
		w.logger.Errorf("job %s: mark in progress: %v", job.JobID, err)
	}

	if err := w.runJob(ctx, job); err != nil {
		w.logger.Errorf("job %s failed: %v", job.JobID, err)
		if err := w.redisRepo.UpdateStatus(ctx, job.JobID, models.JobStatusFailed, err.Error()); err != nil {
			w.logger.Errorf("job %s: record failure: %v", job.JobID, err)
		}
		if err := w.jobsRepo.UpdateJobStatus(ctx, job.JobID, models.JobStatusFailed, err.Error()); err != nil {
			w.logger.Errorf("job %s: record failure: %v", job.JobID, err)
		}
		return
	}

	if err := w.redisRepo.UpdateStatus(ctx, job.JobID, models.JobStatusCompleted, ""); err != nil {
		w.logger.Errorf("job %s: record completion: %v", job.JobID, err)
	}
	if err := w.jobsRepo.UpdateJobStatus(ctx, job.JobID, models.JobStatusCompleted, ""); err != nil {
		w.logger.Errorf("job %s: record completion: %v", job.JobID, err)
	}
	w.logger.Infof("job %s completed", job.JobID)
}

func (w *Worker) runJob(ctx context.Context, job *models.PipelineJob) error {
	runDir, err := os.MkdirTemp("", "golem_run_")
	if err != nil {
		return errors.Wrap(err, "create run directory")
	}
	defer os.RemoveAll(runDir)

	inputPath, err := w.downloadInput(ctx, job, runDir)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(w.invoker, w.logger)
	composer := pipeline.NewComposer(runner, w.logger)
	out, err := composer.Run(ctx, job.Scenario, pipeline.RunRequest{
		InputFile: inputPath,
		RunDir:    runDir,
		Parts:     job.Parts,
		Transcode: pipeline.TranscodeOptions{
			VideoCodec:   job.Transcode.VideoCodec,
			VideoBitrate: job.Transcode.VideoBitrate,
			AudioCodec:   job.Transcode.AudioCodec,
			AudioBitrate: job.Transcode.AudioBitrate,
			Resolution:   [2]int{job.Transcode.Width, job.Transcode.Height},
			FrameRate:    job.Transcode.FrameRate,
			UsePlaylist:  job.Transcode.UsePlaylist,
			Concurrency:  w.cfg.Pipeline.TranscodeParallel,
		},
	})
	if err != nil {
		return err
	}
	return w.uploadOutputs(ctx, job, out)
}

func (w *Worker) downloadInput(ctx context.Context, job *models.PipelineJob, runDir string) (string, error) {
	inputDir := filepath.Join(runDir, "input")
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return "", errors.Wrap(err, "create input directory")
	}
	body, err := w.awsRepo.GetObject(ctx, job.InputBucket, job.InputS3Key)
	if err != nil {
		return "", errors.Wrapf(err, "fetch input %s", job.InputS3Key)
	}
	defer body.Close()

	localPath := filepath.Join(inputDir, path.Base(job.InputS3Key))
	outFile, err := os.Create(localPath)
	if err != nil {
		return "", errors.Wrap(err, "create local input file")
	}
	defer outFile.Close()
	if _, err := io.Copy(outFile, body); err != nil {
		return "", errors.Wrap(err, "write local input file")
	}
	return localPath, nil
}

func (w *Worker) uploadOutputs(ctx context.Context, job *models.PipelineJob, out *pipeline.StageOutput) error {
	for _, artifact := range out.Artifacts {
		key := job.OutputS3Key
		if len(out.Artifacts) > 1 {
			key = path.Join(job.OutputS3Key, artifact.Name)
		}
		f, err := os.Open(filepath.Join(out.Dir, artifact.Name))
		if err != nil {
			return errors.Wrapf(err, "open artifact %s", artifact.Name)
		}
		err = w.awsRepo.PutObject(ctx, job.OutputBucket, key, f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "upload artifact %s", artifact.Name)
		}
		w.logger.Infof("job %s: uploaded %s to s3://%s/%s", job.JobID, artifact.Name, job.OutputBucket, key)
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/pipeline"
	"github.com/wilsonfonseca/golem/internal/worker"
	"github.com/wilsonfonseca/golem/pkg/logger"
)

// One-shot pipeline run over a local file, without the queue or S3.
func main() {
	var (
		configFile = flag.String("config", "config.yml", "config file")
		input      = flag.String("input", "", "input media file")
		outDir     = flag.String("out", "", "directory receiving the run's stage directories")
		scenario   = flag.String("scenario", pipeline.ScenarioSplitTranscodeMerge, "pipeline scenario")
		parts      = flag.Int("parts", 1, "number of chunks to split into")
		vcodec     = flag.String("vcodec", "", "target video codec")
		vbitrate   = flag.String("vbitrate", "", "target video bitrate")
		acodec     = flag.String("acodec", "", "target audio codec")
		abitrate   = flag.String("abitrate", "", "target audio bitrate")
		width      = flag.Int("width", 0, "target width")
		height     = flag.Int("height", 0, "target height")
		frameRate  = flag.Int("framerate", 0, "target frame rate")
	)
	flag.Parse()

	if *input == "" || *outDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfgFile, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()

	inputPath, err := filepath.Abs(*input)
	if err != nil {
		appLogger.Fatalf("resolve input path: %v", err)
	}
	runDir, err := filepath.Abs(*outDir)
	if err != nil {
		appLogger.Fatalf("resolve output dir: %v", err)
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		appLogger.Fatalf("create output dir: %v", err)
	}

	invoker := worker.NewProcessInvoker(cfg.Pipeline.WorkerCommand, cfg.Pipeline.WorkerCPUPercent)
	defer invoker.Close()

	runner := pipeline.NewRunner(invoker, appLogger)
	composer := pipeline.NewComposer(runner, appLogger)

	out, err := composer.Run(context.Background(), *scenario, pipeline.RunRequest{
		InputFile: inputPath,
		RunDir:    runDir,
		Parts:     *parts,
		Transcode: pipeline.TranscodeOptions{
			VideoCodec:   *vcodec,
			VideoBitrate: *vbitrate,
			AudioCodec:   *acodec,
			AudioBitrate: *abitrate,
			Resolution:   [2]int{*width, *height},
			FrameRate:    *frameRate,
			Concurrency:  cfg.Pipeline.TranscodeParallel,
		},
	})
	if err != nil {
		var wf *pipeline.WorkerFailure
		if errors.As(err, &wf) {
			appLogger.Errorf("pipeline failed: %v", wf)
			os.Exit(wf.ExitCode)
		}
		appLogger.Fatalf("pipeline failed: %v", err)
	}

	for _, artifact := range out.Artifacts {
		fmt.Println(filepath.Join(out.Dir, artifact.Name))
	}
}

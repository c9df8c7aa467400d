package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `server:
  AppVersion: 1.0.0
  Port: :5000
  Mode: Development

logger:
  Encoding: console
  Level: info

redis:
  RedisAddr: localhost:6379
  JobQueueKey: pipeline_jobs

container:
  Address: /run/containerd/containerd.sock
  Namespace: golem
  CPULimit: 1.5
  MemoryMB: 2048

pipeline:
  WorkerCommand: golem-worker
  WorkerCPUPercent: 50
  TranscodeParallel: 4
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0644))

	v, err := LoadConfig(path)
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Port)
	assert.Equal(t, "Development", cfg.Server.Mode)
	assert.Equal(t, "console", cfg.Logger.Encoding)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr)
	assert.Equal(t, "pipeline_jobs", cfg.Redis.JobQueueKey)
	assert.Equal(t, "golem", cfg.Container.Namespace)
	assert.Equal(t, 1.5, cfg.Container.CPULimit)
	assert.Equal(t, 2048, cfg.Container.MemoryMB)
	assert.Equal(t, "golem-worker", cfg.Pipeline.WorkerCommand)
	assert.Equal(t, 4, cfg.Pipeline.TranscodeParallel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

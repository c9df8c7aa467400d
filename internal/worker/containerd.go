package worker

import (
	"bytes"
	"context"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/pipeline"
)

const (
	defaultContainerdAddress = "/run/containerd/containerd.sock"
	defaultNamespace         = "golem"
)

// ContainerdInvoker runs each unit of work inside a containerd sandbox.
// The worker sees exactly four mounts: resources, the per-invocation work
// scope (holding params.json), output, and the original input file bound
// read-only at its alias. The image entrypoint is the worker; the core
// never interprets its media handling.
type ContainerdInvoker struct {
	client *containerd.Client
	cfg    config.ContainerConfig
}

func NewContainerdInvoker(cfg config.ContainerConfig) (*ContainerdInvoker, error) {
	address := cfg.Address
	if address == "" {
		address = defaultContainerdAddress
	}
	client, err := containerd.New(address)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to containerd at %s", address)
	}
	return &ContainerdInvoker{client: client, cfg: cfg}, nil
}

func (i *ContainerdInvoker) Close() error {
	return i.client.Close()
}

func (i *ContainerdInvoker) Invoke(ctx context.Context, desc pipeline.Descriptor, b pipeline.StageBinding) error {
	ns := i.cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	ctx = namespaces.WithNamespace(ctx, ns)

	image, err := i.client.GetImage(ctx, i.cfg.Image)
	if err != nil {
		image, err = i.client.Pull(ctx, i.cfg.Image, containerd.WithPullUnpack)
		if err != nil {
			return errors.Wrapf(err, "pull worker image %s", i.cfg.Image)
		}
	}

	mounts := []specs.Mount{
		{Destination: pipeline.ResourcesPath, Type: "bind", Source: b.ResourcesDir, Options: []string{"rbind", "rw"}},
		{Destination: pipeline.WorkPath, Type: "bind", Source: b.WorkDir, Options: []string{"rbind", "rw"}},
		{Destination: pipeline.OutputPath, Type: "bind", Source: b.OutputDir, Options: []string{"rbind", "rw"}},
		{Destination: b.InputAlias, Type: "bind", Source: b.InputFile, Options: []string{"rbind", "ro"}},
	}

	specOpts := []oci.SpecOpts{oci.WithImageConfig(image), oci.WithMounts(mounts)}
	if i.cfg.CPULimit > 0 {
		specOpts = append(specOpts, oci.WithCPUShares(uint64(i.cfg.CPULimit*1024)))
	}
	if i.cfg.MemoryMB > 0 {
		specOpts = append(specOpts, oci.WithMemoryLimit(uint64(i.cfg.MemoryMB)<<20))
	}

	id := "golem-" + uuid.New().String()
	container, err := i.client.NewContainer(ctx, id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(specOpts...),
	)
	if err != nil {
		return errors.Wrapf(err, "create worker container for %s", desc.Command())
	}
	defer container.Delete(ctx, containerd.WithSnapshotCleanup)

	var stdout, stderr bytes.Buffer
	task, err := container.NewTask(ctx, cio.NewCreator(cio.WithStreams(nil, &stdout, &stderr)))
	if err != nil {
		return errors.Wrap(err, "create worker task")
	}
	defer task.Delete(ctx)

	exitCh, err := task.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "wait on worker task")
	}
	if err := task.Start(ctx); err != nil {
		return errors.Wrap(err, "start worker task")
	}

	status := <-exitCh
	code, _, err := status.Result()
	if err != nil {
		return errors.Wrap(err, "read worker exit status")
	}
	if code != 0 {
		return &pipeline.WorkerFailure{ExitCode: int(code), Stderr: stderr.String()}
	}
	return nil
}

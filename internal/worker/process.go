package worker

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/containerd/cgroups"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/internal/pipeline"
)

// ProcessInvoker executes the worker command directly on the host with the
// binding paths passed as flags. Used by the one-shot CLI and in
// environments without a containerd daemon. CPU control goes through a
// cgroup when one can be created; otherwise the worker runs unconstrained.
type ProcessInvoker struct {
	command string
	cgroup  cgroups.Cgroup
}

func NewProcessInvoker(command string, cpuPercent int) *ProcessInvoker {
	p := &ProcessInvoker{command: command}
	if cpuPercent > 0 {
		// 100% = 1024 shares, floor of 2 per the cgroup contract
		shares := uint64(1024 * cpuPercent / 100)
		if shares < 2 {
			shares = 2
		}
		cg, err := cgroups.New(
			cgroups.V1,
			cgroups.StaticPath("/golem-worker"),
			&specs.LinuxResources{
				CPU: &specs.LinuxCPU{
					Shares: &shares,
				},
			},
		)
		if err == nil {
			p.cgroup = cg
		}
	}
	return p
}

func (p *ProcessInvoker) Invoke(ctx context.Context, desc pipeline.Descriptor, b pipeline.StageBinding) error {
	cmd := exec.CommandContext(ctx, p.command,
		"--resources", b.ResourcesDir,
		"--work", b.WorkDir,
		"--output", b.OutputDir,
		"--input", b.InputFile,
		"--input-alias", b.InputAlias,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start worker command %s", p.command)
	}
	if p.cgroup != nil {
		// best effort; the worker still runs if the kernel refuses
		_ = p.cgroup.Add(cgroups.Process{Pid: cmd.Process.Pid})
	}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &pipeline.WorkerFailure{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return errors.Wrapf(err, "run worker command %s", p.command)
	}
	return nil
}

func (p *ProcessInvoker) Close() error {
	if p.cgroup != nil {
		return p.cgroup.Delete()
	}
	return nil
}

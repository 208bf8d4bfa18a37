package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Stage names passed to external tools as their last argument.
const (
	StageScheduling = "scheduling"
	StagePlacement  = "placement"
	StageRouting    = "routing"
	StageFull       = "full"
)

// Exec runs an external synthesis tool as a child process.
//
// The tool is invoked as `<binary> <args...> <stage>` and receives a JSON
// request on stdin:
//
//	{"problem": {...persisted problem...}, "placement": {...}, "schedule": {...}}
//
// where placement and schedule are only set for the routing stage. It must
// print a result in the format of [dio.Output] on stdout. Translating to
// and from the tool's native files is the wrapper script's job.
type Exec struct {
	name   string
	binary string
	args   []string
}

// NewExec returns an adapter for binary, looked up on PATH unless it is a
// path.
func NewExec(name, binary string, args ...string) *Exec {
	return &Exec{name: name, binary: binary, args: args}
}

type request struct {
	Problem   json.RawMessage `json:"problem"`
	Placement map[int][2]int  `json:"placement,omitempty"`
	Schedule  map[int][2]int  `json:"schedule,omitempty"`
}

func (e *Exec) Name() string { return e.name }

// Available checks that the binary can be found.
func (e *Exec) Available(context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return errors.Wrap(errors.ErrCodeAdapterUnavailable, err, "%s: %s not found", e.name, e.binary)
	}
	return nil
}

func (e *Exec) SolveScheduling(ctx context.Context, p *problem.Problem) (problem.Schedule, error) {
	out, err := e.run(ctx, StageScheduling, p, nil, nil)
	if err != nil {
		return nil, err
	}
	return out.ScheduleValue(), nil
}

func (e *Exec) SolvePlacement(ctx context.Context, p *problem.Problem) (problem.Placement, error) {
	out, err := e.run(ctx, StagePlacement, p, nil, nil)
	if err != nil {
		return nil, err
	}
	return out.PlacementValue(), nil
}

func (e *Exec) SolveRouting(ctx context.Context, p *problem.Problem, pl problem.Placement, s problem.Schedule) (problem.Routes, error) {
	out, err := e.run(ctx, StageRouting, p, pl, s)
	if err != nil {
		return nil, err
	}
	return out.RoutesValue(), nil
}

func (e *Exec) SolveFull(ctx context.Context, p *problem.Problem) (*Solution, error) {
	out, err := e.run(ctx, StageFull, p, nil, nil)
	if err != nil {
		return nil, err
	}
	s := out.ScheduleValue()
	makespan := out.Makespan
	if makespan == 0 {
		makespan = s.Makespan()
	}
	return &Solution{
		Schedule:  s,
		Placement: out.PlacementValue(),
		Routes:    out.RoutesValue(),
		Makespan:  makespan,
	}, nil
}

func (e *Exec) run(ctx context.Context, stage string, p *problem.Problem, pl problem.Placement, s problem.Schedule) (*dio.Output, error) {
	if err := e.Available(ctx); err != nil {
		return nil, err
	}
	raw, err := dio.MarshalProblem(p)
	if err != nil {
		return nil, err
	}
	req := request{Problem: raw}
	if pl != nil || s != nil {
		var enc dio.Output
		enc.EncodeSolution(pl, s, nil)
		req.Placement, req.Schedule = enc.Placement, enc.Schedule
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode request")
	}

	args := append(append([]string{}, e.args...), stage)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = bytes.NewReader(body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeAdapterFailed, err, "%s %s: %s",
			e.name, stage, strings.TrimSpace(stderr.String()))
	}

	out, err := dio.ReadResult(&stdout)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAdapterFailed, err, "%s %s: unreadable output", e.name, stage)
	}
	return out, nil
}

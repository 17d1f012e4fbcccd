// Package runner invokes the external transformation programs that back
// every pipeline operation. Each invocation is synchronous: the call blocks
// until the program exits, and the declared output path is verified before
// success is reported. Failures are never retried; the wrapped binaries are
// deterministic given identical inputs.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/openmni/mnipipe/pkg/runner"

// Invocation describes one completed (or failed) external program run.
type Invocation struct {
	RunID      string
	Program    string
	Args       []string
	OutputPath string
	ExitCode   int
	Error      string
	Duration   time.Duration
	StartedAt  time.Time
}

// Recorder persists invocation records, typically to the provenance
// journal. Recording failures are logged but never escalate into the
// invocation's own result.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

// MetricsObserver receives per-invocation measurements.
type MetricsObserver interface {
	ObserveInvocation(program, status string, d time.Duration)
}

// Runner executes external programs with logging, tracing, and optional
// provenance recording.
type Runner struct {
	runID    string
	recorder Recorder
	metrics  MetricsObserver
	tracer   trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunID tags every recorded invocation with a run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithRecorder registers a Recorder for invocation provenance.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithMetrics registers a MetricsObserver.
func WithMetrics(m MetricsObserver) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs program with args and verifies that declaredOutput exists and
// is non-empty afterwards. It returns ProgramNotFoundError if the program
// is not installed, ExternalProgramError on a non-zero exit, and
// OutputNotProducedError when the program reports success without writing
// its output.
func (r *Runner) Invoke(ctx context.Context, program string, args []string, declaredOutput string) error {
	_, _, err := r.run(ctx, program, args, declaredOutput)
	return err
}

// Capture runs program with args and returns its captured stdout. It is
// used for programs whose result is consumed as arguments to a follow-up
// invocation rather than written to a file.
func (r *Runner) Capture(ctx context.Context, program string, args []string) ([]byte, error) {
	stdout, _, err := r.run(ctx, program, args, "")
	return stdout, err
}

func (r *Runner) run(ctx context.Context, program string, args []string, declaredOutput string) ([]byte, []byte, error) {
	ctx, span := r.tracer.Start(ctx, "mnipipe.invoke",
		trace.WithAttributes(
			attribute.String("program", program),
			attribute.Int("arg_count", len(args)),
		))
	defer span.End()

	inv := Invocation{
		RunID:      r.runID,
		Program:    program,
		Args:       args,
		OutputPath: declaredOutput,
		StartedAt:  time.Now(),
	}

	var stdout, stderr bytes.Buffer
	var err error
	if _, lookErr := exec.LookPath(program); lookErr != nil {
		err = &ProgramNotFoundError{Program: program, Err: lookErr}
	} else {
		cmd := exec.CommandContext(ctx, program, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		inv.StartedAt = time.Now()
		runErr := cmd.Run()
		inv.Duration = time.Since(inv.StartedAt)

		switch {
		case runErr != nil:
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				inv.ExitCode = exitErr.ExitCode()
				err = &ExternalProgramError{
					Program:  program,
					ExitCode: exitErr.ExitCode(),
					Stderr:   stderr.String(),
				}
			} else {
				err = fmt.Errorf("failed to execute %s: %w", program, runErr)
			}
		case declaredOutput != "":
			if info, statErr := os.Stat(declaredOutput); statErr != nil || info.Size() == 0 {
				err = &OutputNotProducedError{Program: program, OutputPath: declaredOutput}
			}
		}
	}

	status := "success"
	if err != nil {
		inv.Error = err.Error()
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().
			Err(err).
			Str("program", program).
			Strs("args", args).
			Dur("duration", inv.Duration).
			Msg("external program failed")
	} else {
		span.SetStatus(codes.Ok, "")
		log.Debug().
			Str("program", program).
			Strs("args", args).
			Dur("duration", inv.Duration).
			Msg("external program completed")
	}

	if r.metrics != nil {
		r.metrics.ObserveInvocation(program, status, inv.Duration)
	}
	if r.recorder != nil {
		if recErr := r.recorder.Record(ctx, inv); recErr != nil {
			log.Warn().Err(recErr).Str("program", program).Msg("failed to record invocation")
		}
	}

	return stdout.Bytes(), stderr.Bytes(), err
}

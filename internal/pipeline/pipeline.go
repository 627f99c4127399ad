package pipeline

import (
	"context"
	"fmt"

	"github.com/block/goose-packager/internal/logger"
)

// Step is one stage of the packaging run.
// Implementations report their outcome as a Result; they never abort the
// process themselves.
type Step interface {
	// Name labels the step in progress messages and warnings.
	Name() string
	// Run executes the step.
	Run(ctx context.Context) Result
}

// Warning records an absorbed step failure for the end-of-run summary.
type Warning struct {
	// Step is the name of the step that failed.
	Step string
	// Err is the absorbed failure.
	Err error
}

// Pipeline executes steps strictly in order. Continuation is decided by the
// result class alone: fatal results abort, everything else moves forward.
type Pipeline struct {
	steps    []Step
	warnings []Warning
}

// New returns a pipeline over the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Run executes every step in order until one reports a fatal result.
// Recovered failures are collected as warnings and never propagate.
func (p *Pipeline) Run(ctx context.Context) error {
	for i, step := range p.steps {
		stepCtx := logger.WithName(ctx, step.Name())

		logger.InfoKV(stepCtx, "Step started",
			"step", step.Name(), "position", fmt.Sprintf("%d/%d", i+1, len(p.steps)))

		res := step.Run(stepCtx)

		switch res.Class {
		case ClassOk:
			logger.InfoKV(stepCtx, "Step completed", "step", step.Name(), "path", res.Path)
		case ClassSkipped:
			logger.InfoKV(stepCtx, "Step skipped", "step", step.Name(), "reason", res.Reason)
		case ClassRecovered:
			p.warnings = append(p.warnings, Warning{Step: step.Name(), Err: res.Err})
			logger.WarnKV(stepCtx, "Step failed, continuing without its artifact",
				"step", step.Name(), "error", res.Err)
		case ClassFatal:
			logger.ErrorKV(stepCtx, "Step failed fatally", "step", step.Name(), "error", res.Err)
			return fmt.Errorf("step %s: %w", step.Name(), res.Err)
		}
	}

	return nil
}

// Warnings returns the absorbed failures collected during the run, in order.
func (p *Pipeline) Warnings() []Warning {
	return append([]Warning(nil), p.warnings...)
}

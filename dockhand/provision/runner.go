// Package provision holds the idempotent step sequencer and the three
// pipelines built on it: the Windows-side host pipeline, the in-guest
// install pipeline and the post-restart verification pipeline.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// ErrRestartRequired signals that provisioning cannot continue until the
// machine (or the WSL VM) has been restarted. The runner stops the pipeline
// and the caller exits cleanly with instructions instead of failing.
var ErrRestartRequired = errors.New("restart required before provisioning can continue")

// FailurePolicy controls what an action failure does to the pipeline.
type FailurePolicy int

const (
	// Abort stops the pipeline; continuing would build on top of an
	// inconsistent state.
	Abort FailurePolicy = iota

	// Warn logs the failure and keeps going; the step does not block the
	// primary outcome.
	Warn
)

type StepStatus string

const (
	StatusSkipped  StepStatus = "skipped"
	StatusSuccess  StepStatus = "success"
	StatusFailed   StepStatus = "failed"
	StatusWarned   StepStatus = "warned"
	StatusDeferred StepStatus = "deferred"
	StatusPlanned  StepStatus = "planned"
)

// Step is one guarded unit of work. Guard is re-evaluated on every run so
// repeated executions converge on the same end state; it reports whether the
// step's outcome is already in place. A nil Guard means the action is always
// safe to re-run.
type Step struct {
	Name      string
	Guard     func(ctx context.Context) (done bool, reason string, err error)
	Action    func(ctx context.Context) error
	OnFailure FailurePolicy
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report captures a whole pipeline run.
type Report struct {
	Pipeline  string       `json:"pipeline"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Status    string       `json:"status"`
	Steps     []StepResult `json:"steps"`
	Error     string       `json:"error,omitempty"`
}

// WriteFile marshals the report to path as indented JSON.
func (r Report) WriteFile(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Runner executes steps in order with abort-on-first-hard-failure semantics.
type Runner struct {
	Logger *logrus.Logger
	DryRun bool
}

// Run walks the steps. It returns ErrRestartRequired (possibly wrapped) when
// a step defers the rest of the pipeline to a restart, and the failing
// step's error on a hard failure. Warn-policy failures are aggregated into
// the log only.
func (r *Runner) Run(ctx context.Context, pipeline string, steps []Step) (Report, error) {
	report := Report{
		Pipeline:  pipeline,
		StartedAt: time.Now(),
		Status:    "success",
	}

	var warnings *multierror.Error
	for _, step := range steps {
		log := r.Logger.WithField("step", step.Name)

		if r.DryRun {
			log.Info("Would run")
			report.Steps = append(report.Steps, StepResult{Name: step.Name, Status: StatusPlanned})
			continue
		}

		start := time.Now()

		if step.Guard != nil {
			done, reason, err := step.Guard(ctx)
			if err != nil {
				err = fmt.Errorf("step %s: evaluating guard: %w", step.Name, err)
				report.Steps = append(report.Steps, StepResult{
					Name: step.Name, Status: StatusFailed, Message: err.Error(), Duration: time.Since(start),
				})
				report.Status = "failed"
				report.Error = err.Error()
				report.EndedAt = time.Now()
				return report, err
			}
			if done {
				log.WithField("reason", reason).Info("Already satisfied, skipping")
				report.Steps = append(report.Steps, StepResult{
					Name: step.Name, Status: StatusSkipped, Message: reason, Duration: time.Since(start),
				})
				continue
			}
		}

		log.Info("Running")
		err := step.Action(ctx)
		duration := time.Since(start)

		switch {
		case err == nil:
			report.Steps = append(report.Steps, StepResult{
				Name: step.Name, Status: StatusSuccess, Duration: duration,
			})

		case errors.Is(err, ErrRestartRequired):
			log.Info("Deferred until after a restart")
			report.Steps = append(report.Steps, StepResult{
				Name: step.Name, Status: StatusDeferred, Message: err.Error(), Duration: duration,
			})
			report.Status = "deferred"
			report.EndedAt = time.Now()
			return report, err

		case step.OnFailure == Warn:
			log.WithError(err).Warn("Step failed, continuing")
			report.Steps = append(report.Steps, StepResult{
				Name: step.Name, Status: StatusWarned, Message: err.Error(), Duration: duration,
			})
			warnings = multierror.Append(warnings, fmt.Errorf("%s: %w", step.Name, err))

		default:
			err = fmt.Errorf("step %s: %w", step.Name, err)
			log.Error(err)
			report.Steps = append(report.Steps, StepResult{
				Name: step.Name, Status: StatusFailed, Message: err.Error(), Duration: duration,
			})
			report.Status = "failed"
			report.Error = err.Error()
			report.EndedAt = time.Now()
			return report, err
		}
	}

	if err := warnings.ErrorOrNil(); err != nil {
		r.Logger.WithField("warnings", len(warnings.Errors)).Warn("Pipeline finished with non-critical failures")
	}
	report.EndedAt = time.Now()
	return report, nil
}

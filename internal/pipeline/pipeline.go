package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/brokerage-insights/internal/cleaning"
	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/logger"
	"github.com/dvloznov/brokerage-insights/internal/metrics"
	"github.com/dvloznov/brokerage-insights/internal/report"
)

// PipelineStep represents a single stage of a run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// Metrics are the counts and statistics gathered while cleaning and filtering.
type Metrics struct {
	RowsLoaded        int
	DuplicatesRemoved int
	OutliersDetected  int
	RowsInWindow      int
	Imputation        cleaning.ImputationReport
	Outliers          cleaning.OutlierReport
	Cutoff            time.Time
}

// PipelineState holds the shared state across all pipeline steps. Each step
// replaces Table with the table it produced.
type PipelineState struct {
	RunID     string
	Source    string
	Reference time.Time
	Years     int

	Table   *domain.Table
	Metrics Metrics

	Charts      []report.Chart
	Summary     []string
	SummaryPath string
	Published   []string
}

// NewState creates the state for a run over source with a fresh run ID.
// Reference anchors the window filter and should be injected by callers.
func NewState(source string, reference time.Time, years int) *PipelineState {
	return &PipelineState{
		RunID:     uuid.NewString(),
		Source:    source,
		Reference: reference,
		Years:     years,
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps    []PipelineStep
	recorder *metrics.Recorder
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// WithRecorder makes the pipeline report per-stage row counts and durations.
func (p *Pipeline) WithRecorder(r *metrics.Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id": state.RunID,
	})
	ctx = logger.WithContext(ctx, log)

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) not started: %w", i+1, step.Name(), err)
		}

		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		elapsed := time.Since(start)

		log.Info().
			Str("stage", step.Name()).
			Int("rows", state.Table.Len()).
			Dur("elapsed", elapsed).
			Msg("Stage completed")
		if p.recorder != nil {
			p.recorder.ObserveStage(step.Name(), state.Table.Len(), elapsed)
		}
	}

	if p.recorder != nil {
		p.recorder.SetCleaning(state.Metrics.DuplicatesRemoved, state.Metrics.OutliersDetected)
	}
	return nil
}

// NewCleaningPipeline loads the source and runs the cleaner, the feature
// deriver and the window filter.
func NewCleaningPipeline(deps Deps) *Pipeline {
	return NewPipeline(cleaningSteps(deps)...)
}

// NewReportPipeline runs the cleaning pipeline followed by chart rendering and
// the executive summary. Publishing and notification are added only when
// their dependencies are configured.
func NewReportPipeline(deps Deps) *Pipeline {
	steps := cleaningSteps(deps)
	steps = append(steps,
		&RenderChartsStep{Renderer: deps.Charts},
		&WriteSummaryStep{Dir: deps.ReportsDir, ChartsHref: deps.ChartsHref},
	)
	if deps.Publisher != nil && deps.Bucket != "" {
		steps = append(steps, &PublishStep{
			Publisher: deps.Publisher,
			Bucket:    deps.Bucket,
			Prefix:    deps.Prefix,
		})
	}
	if deps.Notifier != nil {
		steps = append(steps, &NotifyStep{Notifier: deps.Notifier})
	}
	return NewPipeline(steps...)
}

func cleaningSteps(deps Deps) []PipelineStep {
	return []PipelineStep{
		&LoadStep{Loader: deps.Loader},
		&ImputeStep{Out: deps.Out},
		&DeduplicateStep{},
		&OutlierStep{},
		&DeriveStep{},
		&WindowStep{},
	}
}

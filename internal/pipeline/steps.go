package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dvloznov/brokerage-insights/internal/cleaning"
	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/features"
	"github.com/dvloznov/brokerage-insights/internal/logger"
	"github.com/dvloznov/brokerage-insights/internal/notify"
	"github.com/dvloznov/brokerage-insights/internal/report"
	"github.com/dvloznov/brokerage-insights/internal/storage"
	"github.com/dvloznov/brokerage-insights/internal/window"
)

var errNoTable = errors.New("no table loaded")

// LoadStep reads the source into the state table.
type LoadStep struct {
	Loader Loader
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Loader == nil {
		return errors.New("no loader configured")
	}
	t, err := s.Loader.Load(ctx, state.Source)
	if err != nil {
		return err
	}
	state.Table = t
	state.Metrics.RowsLoaded = t.Len()

	log := logger.FromContext(ctx)
	log.Info().
		Str("source", state.Source).
		Int("rows", t.Len()).
		Msg("Data loaded successfully")
	return nil
}

// ImputeStep fills nulls in the fixed categorical columns with their mode.
type ImputeStep struct {
	// Out receives the before/after null counts; nil discards them.
	Out io.Writer
}

func (s *ImputeStep) Name() string { return "impute" }

func (s *ImputeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return errNoTable
	}
	log := logger.FromContext(ctx)

	t, rep, err := cleaning.Impute(state.Table)
	if err != nil {
		return err
	}
	state.Table = t
	state.Metrics.Imputation = rep

	for _, col := range domain.ImputableColumns {
		if mode, ok := rep.Filled[col]; ok {
			log.Info().Str("column", col).Str("mode", mode).Int("cells", rep.FilledCells[col]).Msg("Filled missing values with mode")
		}
	}
	for _, col := range rep.Unfillable {
		log.Warn().Str("column", col).Msg("Column has no non-null values; nulls left in place")
	}
	if s.Out != nil {
		if _, err := io.WriteString(s.Out, rep.String()); err != nil {
			return fmt.Errorf("writing imputation report: %w", err)
		}
	}
	return nil
}

// DeduplicateStep removes fully identical rows.
type DeduplicateStep struct{}

func (s *DeduplicateStep) Name() string { return "deduplicate" }

func (s *DeduplicateStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return errNoTable
	}
	t, removed := cleaning.RemoveDuplicates(state.Table)
	state.Table = t
	state.Metrics.DuplicatesRemoved = removed

	log := logger.FromContext(ctx)
	log.Info().Int("duplicates_removed", removed).Msg("Duplicate records removed")
	return nil
}

// OutlierStep caps TotalAmount to its IQR fences.
type OutlierStep struct{}

func (s *OutlierStep) Name() string { return "cap_outliers" }

func (s *OutlierStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return errNoTable
	}
	t, rep := cleaning.CapOutliers(state.Table)
	state.Table = t
	state.Metrics.Outliers = rep
	state.Metrics.OutliersDetected = rep.Detected

	log := logger.FromContext(ctx)
	log.Info().
		Int("outliers_detected", rep.Detected).
		Str("lower", rep.Lower.String()).
		Str("upper", rep.Upper.String()).
		Msg("Outliers in TotalAmount capped")
	return nil
}

// DeriveStep adds ProfitLoss, Year and Month.
type DeriveStep struct{}

func (s *DeriveStep) Name() string { return "derive" }

func (s *DeriveStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return errNoTable
	}
	state.Table = features.Derive(state.Table)
	log := logger.FromContext(ctx)
	log.Debug().Msg("Feature engineering completed")
	return nil
}

// WindowStep keeps rows dated within the last state.Years years of state.Reference.
type WindowStep struct{}

func (s *WindowStep) Name() string { return "window" }

func (s *WindowStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return errNoTable
	}
	if state.Years < 0 {
		return fmt.Errorf("window years must not be negative, got %d", state.Years)
	}
	t, cutoff := window.Filter(state.Table, state.Years, state.Reference)
	state.Table = t
	state.Metrics.Cutoff = cutoff
	state.Metrics.RowsInWindow = t.Len()

	log := logger.FromContext(ctx)
	log.Info().
		Int("years", state.Years).
		Str("cutoff", cutoff.Format(domain.DateLayout)).
		Int("rows", t.Len()).
		Msg("Filtered data to reporting window")
	return nil
}

// RenderChartsStep draws the report charts.
type RenderChartsStep struct {
	Renderer ChartRenderer
}

func (s *RenderChartsStep) Name() string { return "render_charts" }

func (s *RenderChartsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Renderer == nil {
		return errors.New("no chart renderer configured")
	}
	charts, err := s.Renderer.RenderAll(ctx, state.Table)
	if err != nil {
		return err
	}
	state.Charts = charts
	log := logger.FromContext(ctx)
	log.Info().Int("charts", len(charts)).Msg("Charts rendered")
	return nil
}

// WriteSummaryStep composes the executive summary and writes it to Dir.
type WriteSummaryStep struct {
	Dir        string
	ChartsHref string
}

func (s *WriteSummaryStep) Name() string { return "write_summary" }

func (s *WriteSummaryStep) Execute(ctx context.Context, state *PipelineState) error {
	bullets := report.Bullets(state.Table, report.CleaningMetrics{
		DuplicatesRemoved: state.Metrics.DuplicatesRemoved,
		OutliersDetected:  state.Metrics.OutliersDetected,
	})
	p, err := report.WriteSummary(s.Dir, report.Summary{
		RunID:      state.RunID,
		Reference:  state.Reference,
		Bullets:    bullets,
		Charts:     state.Charts,
		ChartsHref: s.ChartsHref,
	})
	if err != nil {
		return err
	}
	state.Summary = bullets
	state.SummaryPath = p

	log := logger.FromContext(ctx)
	log.Info().Str("path", p).Msg("Executive summary generated")
	return nil
}

// PublishStep uploads the rendered charts and the summary under <Prefix>/<run ID>/.
type PublishStep struct {
	Publisher Publisher
	Bucket    string
	Prefix    string
}

func (s *PublishStep) Name() string { return "publish" }

func (s *PublishStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Publisher == nil || s.Bucket == "" {
		return errors.New("no publisher configured")
	}
	runPrefix := storage.ObjectName(s.Prefix, state.RunID)

	uris := make([]string, 0, len(state.Charts)+1)
	for _, c := range state.Charts {
		uri, err := s.Publisher.UploadFile(ctx, s.Bucket, storage.ObjectName(runPrefix, path.Join("charts", c.File)), c.Path)
		if err != nil {
			return err
		}
		uris = append(uris, uri)
	}
	if state.SummaryPath != "" {
		uri, err := s.Publisher.UploadFile(ctx, s.Bucket, storage.ObjectName(runPrefix, report.SummaryFile), state.SummaryPath)
		if err != nil {
			return err
		}
		uris = append(uris, uri)
	}
	state.Published = uris

	log := logger.FromContext(ctx)
	log.Info().
		Str("bucket", s.Bucket).
		Str("prefix", runPrefix).
		Int("objects", len(uris)).
		Msg("Run artefacts published")
	return nil
}

// NotifyStep e-mails the executive summary.
type NotifyStep struct {
	Notifier notify.Notifier
}

func (s *NotifyStep) Name() string { return "notify" }

func (s *NotifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Notifier == nil {
		return errors.New("no notifier configured")
	}
	msg := notify.Message{
		Subject: fmt.Sprintf("Executive Summary %s", state.Reference.Format(domain.DateLayout)),
		Body:    notificationBody(state),
	}
	if state.SummaryPath != "" {
		msg.Attachments = []string{state.SummaryPath}
	}
	return s.Notifier.Send(ctx, msg)
}

func notificationBody(state *PipelineState) string {
	var b strings.Builder
	if state.Metrics.Cutoff.IsZero() {
		fmt.Fprintf(&b, "Run %s over %s (rows: %d).\n\n", state.RunID, state.Source, state.Table.Len())
	} else {
		fmt.Fprintf(&b, "Run %s over %s (rows since %s: %d).\n\n",
			state.RunID, state.Source, state.Metrics.Cutoff.Format(domain.DateLayout), state.Metrics.RowsInWindow)
	}
	for _, bullet := range state.Summary {
		b.WriteString(bullet)
		b.WriteString("\n")
	}
	if len(state.Published) > 0 {
		b.WriteString("\nPublished:\n")
		for _, uri := range state.Published {
			b.WriteString(uri)
			b.WriteString("\n")
		}
	}
	return b.String()
}

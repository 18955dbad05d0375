package pipeline

import (
	"context"
	"io"

	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/notify"
	"github.com/dvloznov/brokerage-insights/internal/report"
)

// Loader reads a source into a transaction table.
type Loader interface {
	Load(ctx context.Context, source string) (*domain.Table, error)
}

// ChartRenderer draws the report charts for a table.
type ChartRenderer interface {
	RenderAll(ctx context.Context, t *domain.Table) ([]report.Chart, error)
}

// Publisher uploads run artefacts to object storage.
type Publisher interface {
	UploadFile(ctx context.Context, bucket, objectName, filePath string) (string, error)
}

// Deps wires the pipeline to its collaborators.
type Deps struct {
	Loader Loader
	// Out receives the human-readable imputation report; nil discards it.
	Out io.Writer

	Charts     ChartRenderer
	ReportsDir string
	ChartsHref string

	Publisher Publisher
	Bucket    string
	Prefix    string

	Notifier notify.Notifier
}

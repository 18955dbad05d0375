package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/loader"
	"github.com/dvloznov/brokerage-insights/internal/metrics"
	"github.com/dvloznov/brokerage-insights/internal/notify"
	"github.com/dvloznov/brokerage-insights/internal/pipeline"
	"github.com/dvloznov/brokerage-insights/internal/report"
)

// MockLoader is a mock implementation of Loader for testing.
type MockLoader struct {
	LoadFunc func(ctx context.Context, source string) (*domain.Table, error)
}

func (m *MockLoader) Load(ctx context.Context, source string) (*domain.Table, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, source)
	}
	return domain.NewTable(nil), nil
}

// MockChartRenderer is a mock implementation of ChartRenderer for testing.
type MockChartRenderer struct {
	RenderAllFunc func(ctx context.Context, t *domain.Table) ([]report.Chart, error)
}

func (m *MockChartRenderer) RenderAll(ctx context.Context, t *domain.Table) ([]report.Chart, error) {
	if m.RenderAllFunc != nil {
		return m.RenderAllFunc(ctx, t)
	}
	return nil, nil
}

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	UploadFileFunc func(ctx context.Context, bucket, objectName, filePath string) (string, error)
}

func (m *MockPublisher) UploadFile(ctx context.Context, bucket, objectName, filePath string) (string, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, bucket, objectName, filePath)
	}
	return "gs://" + bucket + "/" + objectName, nil
}

// MockNotifier is a mock implementation of notify.Notifier for testing.
type MockNotifier struct {
	SendFunc func(ctx context.Context, msg notify.Message) error
}

func (m *MockNotifier) Send(ctx context.Context, msg notify.Message) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

const sampleCSV = `TransactionID,Date,StockSymbol,CompanyName,Sector,TransactionType,Quantity,PricePerShare,TotalAmount,Broker,PortfolioName,CustomerAge,CustomerGender,InvestmentHorizon
5001,2021-11-15,AAPL,Apple Inc.,Technology,Buy,50,150.00,7500.00,Fidelity,Retirement,35,M,Long-Term
5002,2020-05-22,MSFT,Microsoft Corp.,Technology,Buy,30,250.00,7500.00,Charles Schwab,Retirement,35,M,Long-Term
5003,2019-07-10,GOOGL,Alphabet Inc.,Technology,Buy,20,2800.00,56000.00,Fidelity,Retirement,35,M,Long-Term
5004,2022-03-18,AMZN,Amazon.com Inc.,Consumer Discretionary,Buy,10,3300.00,33000.00,TD Ameritrade,Retirement,35,M,Long-Term
5005,2023-01-25,JPM,JPMorgan Chase & Co.,Financials,Sell,15,160.00,2400.00,Fidelity,Retirement,35,,
5005,2023-01-25,JPM,JPMorgan Chase & Co.,Financials,Sell,15,160.00,2400.00,Fidelity,Retirement,35,,
`

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "financial_data.csv")
	require.NoError(t, os.WriteFile(p, []byte(sampleCSV), 0o644))
	return p
}

var reference = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestCleaningPipeline_SampleEndToEnd(t *testing.T) {
	var out bytes.Buffer
	deps := pipeline.Deps{Loader: loader.New(nil, loader.Options{}), Out: &out}
	state := pipeline.NewState(writeSample(t), reference, 5)

	require.NoError(t, pipeline.NewCleaningPipeline(deps).Execute(context.Background(), state))

	assert.Equal(t, 6, state.Metrics.RowsLoaded)
	assert.Equal(t, 1, state.Metrics.DuplicatesRemoved)
	assert.Equal(t, 0, state.Metrics.OutliersDetected)
	assert.Equal(t, 5, state.Metrics.RowsInWindow)
	assert.Equal(t, time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC), state.Metrics.Cutoff)
	assert.Equal(t, "M", state.Metrics.Imputation.Filled[domain.ColCustomerGender])
	assert.Equal(t, "Long-Term", state.Metrics.Imputation.Filled[domain.ColInvestmentHorizon])

	require.Equal(t, 5, state.Table.Len())
	assert.True(t, state.Table.Derived)
	for _, row := range state.Table.Rows {
		require.NotNil(t, row.CustomerGender)
		require.NotNil(t, row.InvestmentHorizon)
		if row.IsSell() {
			assert.True(t, decimal.RequireFromString("0.00").Equal(row.ProfitLoss))
			assert.Equal(t, "January", row.Month)
			assert.Equal(t, 2023, row.Year)
		} else {
			assert.True(t, row.ProfitLoss.IsZero())
		}
	}

	assert.Contains(t, out.String(), "=== Missing Values Before Cleaning ===")
	assert.Contains(t, out.String(), "Filled missing values in 'CustomerGender' with mode: M")
}

func TestCleaningPipeline_WindowUsesReference(t *testing.T) {
	deps := pipeline.Deps{Loader: loader.New(nil, loader.Options{})}
	state := pipeline.NewState(writeSample(t), reference, 2)

	require.NoError(t, pipeline.NewCleaningPipeline(deps).Execute(context.Background(), state))

	require.Equal(t, 1, state.Table.Len())
	assert.Equal(t, int64(5005), state.Table.Rows[0].TransactionID)
	assert.Equal(t, 1, state.Metrics.DuplicatesRemoved, "dedup runs before the window")
}

func TestPipeline_LoadFailure(t *testing.T) {
	deps := pipeline.Deps{Loader: loader.New(nil, loader.Options{})}
	state := pipeline.NewState(filepath.Join(t.TempDir(), "missing.csv"), reference, 2)

	err := pipeline.NewCleaningPipeline(deps).Execute(context.Background(), state)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrSourceNotFound))
	assert.Contains(t, err.Error(), "pipeline step 1 (load) failed")
	assert.Nil(t, state.Table)
}

func TestPipeline_MissingColumn(t *testing.T) {
	mockLoader := &MockLoader{
		LoadFunc: func(ctx context.Context, source string) (*domain.Table, error) {
			return nil, &loader.MissingColumnError{Column: domain.ColBroker}
		},
	}
	state := pipeline.NewState("data.csv", reference, 2)

	err := pipeline.NewCleaningPipeline(pipeline.Deps{Loader: mockLoader}).Execute(context.Background(), state)
	assert.True(t, errors.Is(err, loader.ErrMissingColumn))
}

func TestPipeline_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	mockLoader := &MockLoader{
		LoadFunc: func(ctx context.Context, source string) (*domain.Table, error) {
			called = true
			return domain.NewTable(nil), nil
		},
	}
	err := pipeline.NewCleaningPipeline(pipeline.Deps{Loader: mockLoader}).Execute(ctx, pipeline.NewState("x", reference, 2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestReportPipeline_Steps(t *testing.T) {
	base := pipeline.Deps{Loader: &MockLoader{}, Charts: &MockChartRenderer{}}
	assert.Equal(t,
		[]string{"load", "impute", "deduplicate", "cap_outliers", "derive", "window", "render_charts", "write_summary"},
		pipeline.NewReportPipeline(base).Steps())

	full := base
	full.Publisher = &MockPublisher{}
	full.Bucket = "reports-bucket"
	full.Notifier = &MockNotifier{}
	steps := pipeline.NewReportPipeline(full).Steps()
	assert.Equal(t, []string{"publish", "notify"}, steps[len(steps)-2:])

	noBucket := base
	noBucket.Publisher = &MockPublisher{}
	assert.NotContains(t, pipeline.NewReportPipeline(noBucket).Steps(), "publish")
}

func TestReportPipeline_EndToEnd(t *testing.T) {
	root := t.TempDir()
	chartsDir := filepath.Join(root, "charts")
	reportsDir := filepath.Join(root, "reports")

	var uploaded []string
	publisher := &MockPublisher{
		UploadFileFunc: func(ctx context.Context, bucket, objectName, filePath string) (string, error) {
			_, err := os.Stat(filePath)
			require.NoError(t, err)
			uploaded = append(uploaded, objectName)
			return "gs://" + bucket + "/" + objectName, nil
		},
	}
	var sent []notify.Message
	notifier := &MockNotifier{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			sent = append(sent, msg)
			return nil
		},
	}

	deps := pipeline.Deps{
		Loader:     loader.New(nil, loader.Options{}),
		Charts:     report.NewRenderer(chartsDir, 5),
		ReportsDir: reportsDir,
		ChartsHref: report.ChartsHref(reportsDir, chartsDir),
		Publisher:  publisher,
		Bucket:     "reports-bucket",
		Prefix:     "runs",
		Notifier:   notifier,
	}
	state := pipeline.NewState(writeSample(t), reference, 5)
	recorder := metrics.NewRecorder()

	require.NoError(t, pipeline.NewReportPipeline(deps).WithRecorder(recorder).Execute(context.Background(), state))

	require.Len(t, state.Charts, len(report.ChartNames()))
	assert.Equal(t, filepath.Join(reportsDir, report.SummaryFile), state.SummaryPath)

	md, err := os.ReadFile(state.SummaryPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Executive Summary\n"))
	assert.Contains(t, string(md), `src="../charts/portfolio_allocation.png"`)
	assert.Contains(t, string(md), "1 duplicate record was removed")
	assert.Contains(t, string(md), state.RunID)

	require.Len(t, uploaded, len(report.ChartNames())+1)
	assert.Equal(t, "runs/"+state.RunID+"/charts/portfolio_allocation.png", uploaded[0])
	assert.Equal(t, "runs/"+state.RunID+"/executive_summary.md", uploaded[len(uploaded)-1])
	assert.Len(t, state.Published, len(uploaded))

	require.Len(t, sent, 1)
	assert.Equal(t, "Executive Summary 2024-06-15", sent[0].Subject)
	assert.Equal(t, []string{state.SummaryPath}, sent[0].Attachments)
	assert.Contains(t, sent[0].Body, state.RunID)
}

func TestReportPipeline_PublishFailureStopsRun(t *testing.T) {
	root := t.TempDir()
	notified := false
	deps := pipeline.Deps{
		Loader:     loader.New(nil, loader.Options{}),
		Charts:     &MockChartRenderer{},
		ReportsDir: filepath.Join(root, "reports"),
		Publisher: &MockPublisher{
			UploadFileFunc: func(ctx context.Context, bucket, objectName, filePath string) (string, error) {
				return "", errors.New("permission denied")
			},
		},
		Bucket: "b",
		Notifier: &MockNotifier{
			SendFunc: func(ctx context.Context, msg notify.Message) error {
				notified = true
				return nil
			},
		},
	}

	err := pipeline.NewReportPipeline(deps).Execute(context.Background(), pipeline.NewState(writeSample(t), reference, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(publish) failed: permission denied")
	assert.False(t, notified)
}

func TestNewState(t *testing.T) {
	a := pipeline.NewState("x", reference, 2)
	b := pipeline.NewState("x", reference, 2)

	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, reference, a.Reference)
}

func TestNotifyStep_WithoutWindowOmitsCutoff(t *testing.T) {
	var sent notify.Message
	p := pipeline.NewPipeline(
		&pipeline.LoadStep{Loader: &MockLoader{
			LoadFunc: func(ctx context.Context, source string) (*domain.Table, error) {
				return domain.NewTable([]domain.Transaction{{TransactionID: 1, Date: reference}}), nil
			},
		}},
		&pipeline.NotifyStep{Notifier: &MockNotifier{
			SendFunc: func(ctx context.Context, msg notify.Message) error {
				sent = msg
				return nil
			},
		}},
	)
	state := pipeline.NewState("data.csv", reference, 2)

	require.NoError(t, p.Execute(context.Background(), state))
	assert.Equal(t, "Executive Summary 2024-06-15", sent.Subject)
	assert.NotContains(t, sent.Body, "0001-01-01")
	assert.Contains(t, sent.Body, "(rows: 1)")
	assert.Empty(t, sent.Attachments)
}

func TestNotifyStep_BodyNamesCutoff(t *testing.T) {
	var sent notify.Message
	deps := pipeline.Deps{
		Loader:     loader.New(nil, loader.Options{}),
		Charts:     &MockChartRenderer{},
		ReportsDir: filepath.Join(t.TempDir(), "reports"),
		Notifier: &MockNotifier{
			SendFunc: func(ctx context.Context, msg notify.Message) error {
				sent = msg
				return nil
			},
		},
	}
	state := pipeline.NewState(writeSample(t), reference, 2)

	require.NoError(t, pipeline.NewReportPipeline(deps).Execute(context.Background(), state))
	assert.Contains(t, sent.Body, "(rows since 2022-06-15: 1)")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/brokerage-insights/internal/export"
	"github.com/dvloznov/brokerage-insights/internal/loader"
	"github.com/dvloznov/brokerage-insights/internal/logger"
	"github.com/dvloznov/brokerage-insights/internal/metrics"
	"github.com/dvloznov/brokerage-insights/internal/notify"
	"github.com/dvloznov/brokerage-insights/internal/pipeline"
	"github.com/dvloznov/brokerage-insights/internal/report"
)

const runTimeout = 10 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runReport(os.Args[2:])
	case "clean":
		runClean(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "upload":
		runUpload(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Brokerage Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  brokerage <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Clean the transactions and write charts and the executive summary")
	fmt.Println("  clean     Clean the transactions and export them as CSV or XLSX")
	fmt.Println("  inspect   Print an overview of the raw dataset")
	fmt.Println("  upload    Upload a file or directory to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'brokerage <command> -h' for more information on a command.")
}

func runReport(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := bindCommon(fs)
	chartsDir := fs.String("charts-dir", "", "Directory for chart images")
	reportsDir := fs.String("reports-dir", "", "Directory for the executive summary")
	bucket := fs.String("bucket", "", "GCS bucket to publish charts and summary to")
	prefix := fs.String("prefix", "", "Object prefix inside the bucket")
	metricsFile := fs.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	noNotify := fs.Bool("no-notify", false, "Do not e-mail the summary even when Mailgun is configured")
	fs.Parse(args)

	env := common.setup(fs)
	cfg := env.cfg
	overrideString(fs, "charts-dir", &cfg.ChartsDir, *chartsDir)
	overrideString(fs, "reports-dir", &cfg.ReportsDir, *reportsDir)
	overrideString(fs, "bucket", &cfg.GCSBucket, *bucket)
	overrideString(fs, "prefix", &cfg.GCSPrefix, *prefix)
	overrideString(fs, "metrics-file", &cfg.MetricsFile, *metricsFile)

	ctx, cancel := context.WithTimeout(env.ctx, runTimeout)
	defer cancel()

	svc := env.gcs
	if svc == nil && cfg.GCSBucket != "" {
		svc = newStorage(ctx, env.log)
	}
	if svc != nil {
		defer svc.Close()
	}

	deps := pipeline.Deps{
		Loader:     env.newLoader(svc),
		Out:        os.Stdout,
		Charts:     report.NewRenderer(cfg.ChartsDir, cfg.WindowYears),
		ReportsDir: cfg.ReportsDir,
		ChartsHref: report.ChartsHref(cfg.ReportsDir, cfg.ChartsDir),
		Bucket:     cfg.GCSBucket,
		Prefix:     cfg.GCSPrefix,
	}
	if svc != nil {
		deps.Publisher = svc
	}
	if !*noNotify {
		deps.Notifier = notify.NewFromConfig(cfg.Mailgun)
	}

	recorder := metrics.NewRecorder()
	state := pipeline.NewState(cfg.DataPath, env.reference, cfg.WindowYears)
	env.log.Info().
		Str("run_id", state.RunID).
		Str("source", cfg.DataPath).
		Int("window_years", cfg.WindowYears).
		Str("reference", env.reference.Format("2006-01-02")).
		Msg("Starting report run")

	if err := pipeline.NewReportPipeline(deps).WithRecorder(recorder).Execute(ctx, state); err != nil {
		fail(env.log, cfg.DataPath, err, "Report run failed")
	}
	recorder.MarkSuccess(time.Now())
	writeMetrics(env.log, recorder, cfg.MetricsFile)

	fmt.Printf("Executive summary written to %s (%d charts).\n", state.SummaryPath, len(state.Charts))
	for _, uri := range state.Published {
		fmt.Printf("Published %s\n", uri)
	}
}

func runClean(args []string) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	common := bindCommon(fs)
	out := fs.String("out", "cleaned_data.csv", "Output path; .xlsx writes a workbook, anything else CSV")
	metricsFile := fs.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	fs.Parse(args)

	env := common.setup(fs)
	cfg := env.cfg
	overrideString(fs, "metrics-file", &cfg.MetricsFile, *metricsFile)
	if env.gcs != nil {
		defer env.gcs.Close()
	}

	ctx, cancel := context.WithTimeout(env.ctx, runTimeout)
	defer cancel()

	recorder := metrics.NewRecorder()
	state := pipeline.NewState(cfg.DataPath, env.reference, cfg.WindowYears)
	deps := pipeline.Deps{Loader: env.newLoader(env.gcs), Out: os.Stdout}
	if err := pipeline.NewCleaningPipeline(deps).WithRecorder(recorder).Execute(ctx, state); err != nil {
		fail(env.log, cfg.DataPath, err, "Cleaning failed")
	}

	if err := export.Write(*out, state.Table); err != nil {
		env.log.Fatal().Err(err).Str("path", *out).Msg("Export failed")
	}
	recorder.MarkSuccess(time.Now())
	writeMetrics(env.log, recorder, cfg.MetricsFile)

	fmt.Printf("Wrote %d cleaned rows to %s (%d duplicates removed, %d outliers capped).\n",
		state.Table.Len(), *out, state.Metrics.DuplicatesRemoved, state.Metrics.OutliersDetected)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	common := bindCommon(fs)
	rows := fs.Int("rows", 5, "Number of leading rows to print")
	fs.Parse(args)

	env := common.setup(fs)
	if env.gcs != nil {
		defer env.gcs.Close()
	}

	t, err := env.newLoader(env.gcs).Load(env.ctx, env.cfg.DataPath)
	if err != nil {
		fail(env.log, env.cfg.DataPath, err, "Loading failed")
	}

	if _, err := report.NewOverview(t, *rows).WriteTo(os.Stdout); err != nil {
		env.log.Fatal().Err(err).Msg("Writing overview failed")
	}
}

func runUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	bucket := fs.String("bucket", "", "GCS bucket name (defaults to the configured bucket)")
	objectName := fs.String("object", "", "Object name for a file, or prefix for a directory")
	filePath := fs.String("file", "", "Local file or directory to upload")
	fs.Parse(args)

	cfg, log := loadConfig(*configPath)
	overrideString(fs, "bucket", &cfg.GCSBucket, *bucket)
	if cfg.GCSBucket == "" || *filePath == "" {
		log.Fatal().Msg("Usage: brokerage upload -bucket NAME -file PATH")
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), runTimeout)
	defer cancel()

	info, err := os.Stat(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Cannot read upload source")
	}

	svc := newStorage(ctx, log)
	defer svc.Close()

	if info.IsDir() {
		uris, err := svc.UploadDir(ctx, cfg.GCSBucket, *objectName, *filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Upload failed")
		}
		for _, uri := range uris {
			fmt.Printf("Uploaded %s\n", uri)
		}
		return
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}
	uri, err := svc.UploadFile(ctx, cfg.GCSBucket, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

// fail exits the process. A missing source gets a plain message instead of a log line.
func fail(log zerolog.Logger, source string, err error, msg string) {
	if errors.Is(err, loader.ErrSourceNotFound) {
		fmt.Fprintf(os.Stderr, "File not found at %s. Please check the path.\n", source)
		os.Exit(1)
	}
	log.Fatal().Err(err).Msg(msg)
}

func writeMetrics(log zerolog.Logger, recorder *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write metrics")
		return
	}
	log.Debug().Str("path", path).Msg("Metrics written")
}

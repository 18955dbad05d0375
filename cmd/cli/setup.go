package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/brokerage-insights/internal/config"
	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/loader"
	"github.com/dvloznov/brokerage-insights/internal/logger"
	"github.com/dvloznov/brokerage-insights/internal/storage"
)

// commonFlags are shared by every subcommand that reads the dataset.
type commonFlags struct {
	configPath *string
	dataPath   *string
	years      *int
	reference  *string
	delimiter  *string
	logLevel   *string
	logFormat  *string
}

func bindCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to a YAML config file"),
		dataPath:   fs.String("data", "", "Transactions CSV/XLSX, local path or gs://bucket/object"),
		years:      fs.Int("years", 0, "Keep transactions from the last N years"),
		reference:  fs.String("reference", "", "Reference date for the window, YYYY-MM-DD (default today)"),
		delimiter:  fs.String("delimiter", "", "Field delimiter for delimited text"),
		logLevel:   fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		logFormat:  fs.String("log-format", "", "Log format (console or json)"),
	}
}

// runEnv is what a subcommand needs once flags and config are resolved.
type runEnv struct {
	cfg       *config.Config
	log       zerolog.Logger
	ctx       context.Context
	reference time.Time
	// gcs is set when the data path is a gs:// URI.
	gcs *storage.Service
}

func (c commonFlags) setup(fs *flag.FlagSet) *runEnv {
	cfg, log := loadConfig(*c.configPath)

	overrideString(fs, "data", &cfg.DataPath, *c.dataPath)
	overrideString(fs, "delimiter", &cfg.Delimiter, *c.delimiter)
	overrideString(fs, "log-level", &cfg.LogLevel, *c.logLevel)
	overrideString(fs, "log-format", &cfg.LogFormat, *c.logFormat)
	if isSet(fs, "years") {
		cfg.WindowYears = *c.years
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = newLogger(cfg)

	reference, err := parseReference(*c.reference, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reference date")
	}

	env := &runEnv{
		cfg:       cfg,
		log:       log,
		ctx:       logger.WithContext(context.Background(), log),
		reference: reference,
	}
	if storage.IsURI(cfg.DataPath) {
		env.gcs = newStorage(env.ctx, log)
	}
	return env
}

// newLoader builds a Loader that fetches gs:// sources through svc when it is set.
func (e *runEnv) newLoader(svc *storage.Service) *loader.Loader {
	delim, err := e.cfg.DelimiterRune()
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid delimiter")
	}
	opts := loader.Options{Delimiter: delim}
	if svc == nil {
		return loader.New(nil, opts)
	}
	return loader.New(svc, opts)
}

func loadConfig(path string) (*config.Config, zerolog.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg, newLogger(cfg)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.New(level, cfg.LogFormat)
}

func newStorage(ctx context.Context, log zerolog.Logger) *storage.Service {
	svc, err := storage.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	return svc
}

// parseReference returns the calendar date of value, or of now when value is empty, at UTC midnight.
func parseReference(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parseReference: %w", err)
	}
	return t, nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// overrideString replaces *dst with value when the flag was given on the command line.
func overrideString(fs *flag.FlagSet, name string, dst *string, value string) {
	if isSet(fs, name) {
		*dst = value
	}
}

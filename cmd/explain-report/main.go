// Command explain-report loads a dataset file, runs the full explanation
// report and prints it to stdout as JSON, a text summary or sectioned CSV.
//
//	explain-report -target label -group region -format text scores.csv
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"explaincli/internal/config"
	"explaincli/internal/dataset"
	"explaincli/internal/explain"
	"explaincli/internal/exporter"
	"explaincli/internal/infrastructure"
	"explaincli/internal/services"
	"explaincli/internal/validation"
	"explaincli/pkg/contracts"
)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	path      string
	format    string
	precision int
	maxBytes  int64
	bom       bool
	seed      int64
	seeded    bool
	timeout   time.Duration
	logLevel  string
	version   bool
	load      dataset.Options
	analysis  services.AnalysisOptions
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit so tests can drive it
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "explain-report: %v\n", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetVersionInfo())
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "explain-report: %v\n", err)
		return exitFailure
	}
	cfg.Logging.Level = opts.logLevel
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "console"

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "explain-report: %v\n", err)
		return exitFailure
	}

	logger = infrastructure.WithComponent(logger, "explain-report")
	ctx = infrastructure.EnsureTraceID(ctx)

	if err := generate(ctx, cfg, opts, stdout, logger); err != nil {
		logger.ErrorContext(ctx, "Report failed", slog.String("path", opts.path), slog.String("error", err.Error()))
		return exitFailure
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("explain-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: explain-report [flags] <dataset.csv|dataset.xlsx>")
		fs.PrintDefaults()
	}

	opts := &options{load: dataset.DefaultOptions()}
	var features string

	fs.StringVar(&opts.format, "format", FormatJSON, "output format: json, text or csv")
	fs.IntVar(&opts.precision, "precision", exporter.DefaultPrecision, "decimal places in csv output")
	fs.Int64Var(&opts.maxBytes, "max-size", validation.DefaultMaxFileBytes, "largest dataset file accepted, in bytes")
	fs.BoolVar(&opts.bom, "bom", false, "prefix csv output with a UTF-8 byte order mark")
	fs.Int64Var(&opts.seed, "seed", 0, "seed every random stream for reproducible output")
	fs.DurationVar(&opts.timeout, "timeout", 0, "abort the report after this long (0 = no limit)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	fs.StringVar(&opts.load.PredictionColumn, "prediction", dataset.DefaultPredictionColumn, "prediction column")
	fs.StringVar(&opts.load.TargetColumn, "target", dataset.DefaultTargetColumn, "target column; cross-validation is skipped without it")
	fs.StringVar(&opts.load.GroupColumn, "group", "", "protected group column for the fairness audit")
	fs.StringVar(&opts.load.Sheet, "sheet", "", "xlsx sheet (defaults to the first)")

	fs.IntVar(&opts.analysis.Folds, "folds", 0, "cross-validation folds (0 = configured default)")
	fs.StringVar(&opts.analysis.Scorer, "scorer", "", "cross-validation scorer: "+strings.Join(explain.ScorerNames, ", "))
	fs.IntVar(&opts.analysis.MaxEvaluations, "evaluations", 0, "kernel SHAP evaluation budget")
	fs.IntVar(&opts.analysis.GridSize, "grid", 0, "partial dependence grid size")
	fs.IntVar(&opts.analysis.MaxInteractions, "interactions", 0, "number of interaction pairs to report")
	fs.IntVar(&opts.analysis.Permutations, "permutations", 0, "permutation importance repeats")
	fs.StringVar(&features, "features", "", "comma separated features for partial dependence")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seeded = true
		}
	})
	if opts.version {
		return opts, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected one dataset file, got %d arguments", fs.NArg())
	}
	opts.path = fs.Arg(0)

	switch opts.format {
	case FormatJSON, FormatText, FormatCSV:
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	if features != "" {
		for _, f := range strings.Split(features, ",") {
			if f = strings.TrimSpace(f); f != "" {
				opts.analysis.Features = append(opts.analysis.Features, f)
			}
		}
	}
	return opts, nil
}

func generate(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer, logger *slog.Logger) error {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if err := validation.NewFileValidator(logger, opts.maxBytes).ValidateDatasetFile(opts.path); err != nil {
		return err
	}

	table, err := dataset.Load(opts.path, opts.load)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Dataset loaded",
		slog.String("source", table.Source),
		slog.Int("rows", table.Rows()),
		slog.Int("features", len(table.Names)),
		slog.Bool("target", table.HasTarget()),
		slog.Bool("groups", table.HasGroups()))

	explainer := explain.NewExplainer(cfg.Explain.EngineConfig(), logger)
	if opts.seeded {
		explainer = explainer.WithSeed(opts.seed)
	}
	service := services.NewExplainService(explainer, cfg.Explain, nil, nil, logger)

	report, err := service.Report(ctx, table, opts.analysis)
	if err != nil {
		return err
	}

	switch opts.format {
	case FormatText:
		return writeSummary(stdout, report)
	case FormatCSV:
		exp := exporter.NewReportExporter(stdout, opts.precision)
		if opts.bom {
			exp = exp.WithBOM()
		}
		return exp.Export(report)
	default:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}

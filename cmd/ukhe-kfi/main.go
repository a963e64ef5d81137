package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mtwest2718/ukhe-finances/internal/config"
	"github.com/mtwest2718/ukhe-finances/internal/infrastructure"
	"github.com/mtwest2718/ukhe-finances/internal/pipeline"
	"github.com/mtwest2718/ukhe-finances/internal/rules"
)

// Exit codes
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

type options struct {
	configFile  string
	inputDir    string
	outputDir   string
	rulesFile   string
	tables      string
	workers     int
	strict      bool
	workbook    bool
	fill        string
	metricsFile string
	traceFile   string
	listRules   bool
	dumpRules   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	opts := &options{}
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configFile, "config", "", "YAML config file (defaults to $UKHE_CONFIG, ukhe.yaml or configs/ukhe.yaml)")
	fs.StringVar(&opts.inputDir, "in", "", "directory containing table-<id>.csv|zip|xlsx")
	fs.StringVar(&opts.outputDir, "out", "", "directory for wide.csv, kfi.csv and the manifest")
	fs.StringVar(&opts.rulesFile, "rules", "", "table rules YAML (defaults to the built-in rules)")
	fs.StringVar(&opts.tables, "tables", "", "comma separated table ids to process (default: all)")
	fs.IntVar(&opts.workers, "workers", 1, "tables processed concurrently")
	fs.BoolVar(&opts.strict, "strict", false, "abort without writing outputs if any table fails")
	fs.BoolVar(&opts.workbook, "xlsx", false, "also write an xlsx workbook with kfi and wide sheets")
	fs.StringVar(&opts.fill, "fill", "", "fill policy for missing categories: zero | undefined")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	fs.StringVar(&opts.traceFile, "trace-file", "", "write OpenTelemetry spans as JSON here")
	fs.BoolVar(&opts.listRules, "list-rules", false, "print the table rules and exit")
	fs.BoolVar(&opts.dumpRules, "dump-rules", false, "print the built-in rules YAML, a starting point for -rules, and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, fs, nil
}

// applyFlags overlays flags given on the command line onto cfg.
// Flags left at their defaults never override the config file or environment.
func applyFlags(cfg *config.Config, opts *options, fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Paths.InputDir = opts.inputDir
		case "out":
			cfg.Paths.OutputDir = opts.outputDir
		case "rules":
			cfg.Paths.RulesFile = opts.rulesFile
		case "tables":
			var ids []int
			if ids, err = parseTables(opts.tables); err == nil {
				cfg.Pipeline.Tables = ids
			}
		case "workers":
			cfg.Pipeline.Workers = opts.workers
		case "strict":
			cfg.Pipeline.Strict = opts.strict
		case "xlsx":
			cfg.Output.Workbook = opts.workbook
		case "fill":
			cfg.Pipeline.FillPolicy = opts.fill
		case "metrics-file":
			cfg.Telemetry.MetricsFile = opts.metricsFile
		case "trace-file":
			cfg.Telemetry.TraceFile = opts.traceFile
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// parseTables parses "1,3, 12" into table ids
func parseTables(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid table id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no table ids in %q", s)
	}
	return ids, nil
}

func loadRules(paths *config.Paths) (*rules.RuleSet, error) {
	if paths.RulesFile == "" {
		return rules.Default()
	}
	return rules.LoadFile(paths.RulesFile)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	}
	if opts.dumpRules {
		stdout.Write(rules.DefaultYAML())
		return exitOK
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	}
	if err := applyFlags(cfg, opts, fs); err != nil {
		fmt.Fprintf(stderr, "%s: invalid options: %v\n", config.AppName, err)
		return exitFatal
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	}

	rs, err := loadRules(paths)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	}
	if opts.listRules {
		printRules(stdout, rs)
		return exitOK
	}

	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	}

	cfg.Logging.FilePath = paths.GetLogPath(cfg.Logging.FilePath)
	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to initialize logger: %v\n", config.AppName, err)
		return exitFatal
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())

	if cfg.Telemetry.TraceFile != "" {
		shutdown, err := startTracing(ctx, cfg.Telemetry.TraceFile, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize tracing", slog.String("error", err.Error()))
			return exitFatal
		}
		defer shutdown()
	}

	logger.InfoContext(ctx, "Starting run",
		slog.String("version", config.AppVersion),
		slog.String("input_dir", paths.InputDir),
		slog.String("output_dir", paths.OutputDir),
		slog.String("rules", rulesSource(paths)))

	result, err := pipeline.New(cfg, paths, rs, logger).Run(ctx)
	if result != nil {
		printSummary(stdout, result)
	}

	switch {
	case err != nil:
		logger.ErrorContext(ctx, "Run failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFatal
	case result.Partial():
		logger.WarnContext(ctx, "Run completed with failed tables",
			slog.Int("failed", len(result.Failed())))
		return exitPartial
	default:
		return exitOK
	}
}

// startTracing writes spans to path until the returned function is called
func startTracing(ctx context.Context, path string, logger *slog.Logger) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	shutdown, err := infrastructure.InitializeTracing(ctx, f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}

	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Failed to flush traces", slog.String("error", err.Error()))
		}
		f.Close()
	}, nil
}

func rulesSource(paths *config.Paths) string {
	if paths.RulesFile == "" {
		return "built-in"
	}
	return paths.RulesFile
}

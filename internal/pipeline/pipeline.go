package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/mtwest2718/ukhe-finances/internal/aggregate"
	"github.com/mtwest2718/ukhe-finances/internal/config"
	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/internal/exporter"
	"github.com/mtwest2718/ukhe-finances/internal/extract"
	"github.com/mtwest2718/ukhe-finances/internal/files"
	"github.com/mtwest2718/ukhe-finances/internal/infrastructure"
	"github.com/mtwest2718/ukhe-finances/internal/kfi"
	"github.com/mtwest2718/ukhe-finances/internal/loader"
	"github.com/mtwest2718/ukhe-finances/internal/normalize"
	"github.com/mtwest2718/ukhe-finances/internal/rules"
	"github.com/mtwest2718/ukhe-finances/internal/validation"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Stage names, used for spans, manifest entries and the duration histogram
const (
	StageValidate = "validate"
	StageTables   = "tables"
	StagePivot    = "pivot"
	StageKFI      = "kfi"
	StageExport   = "export"
)

// Output kinds recorded in the manifest
const (
	OutputWide     = "wide"
	OutputKFI      = "kfi"
	OutputWorkbook = "workbook"
)

// Result is what a run produced. It is returned, possibly partially filled,
// even when Run fails.
type Result struct {
	RunID    string
	Reports  []domain.TableReport
	Wide     *aggregate.WideTable
	KFI      *kfi.Table
	Manifest *Manifest
	Metrics  *Metrics
}

// Failed returns the reports of tables that could not be processed
func (r *Result) Failed() []domain.TableReport {
	var failed []domain.TableReport
	for _, rep := range r.Reports {
		if rep.Status != domain.TableStatusOK {
			failed = append(failed, rep)
		}
	}
	return failed
}

// Partial reports whether outputs were written without every selected table
func (r *Result) Partial() bool {
	return r.KFI != nil && len(r.Failed()) > 0
}

// Pipeline runs the whole reshape: load, extract and normalize each table,
// pivot the long records, compute indicators and write the outputs.
type Pipeline struct {
	cfg     *config.Config
	paths   *config.Paths
	rules   *rules.RuleSet
	logger  *slog.Logger
	metrics *Metrics

	validator  *validation.FileValidator
	discovery  *files.Discovery
	loader     *loader.Loader
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	aggregator *aggregate.Aggregator
	calculator *kfi.Calculator
	writer     *exporter.CSVWriter
}

// New wires a pipeline from validated configuration
func New(cfg *config.Config, paths *config.Paths, rs *rules.RuleSet, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	var peerGroupColumn string
	if len(cfg.Output.PeerGroup) > 0 {
		peerGroupColumn = cfg.Output.PeerGroupName
	}

	return &Pipeline{
		cfg:     cfg,
		paths:   paths,
		rules:   rs,
		logger:  infrastructure.WithComponent(logger, "pipeline"),
		metrics: NewMetrics(),

		validator: validation.NewFileValidator(logger),
		discovery: files.NewDiscovery(paths.InputDir),
		loader: loader.New(loader.Options{
			HeaderRows:    rs.HeaderRows,
			ExcludedYear:  rs.IsExcludedYear,
			WorkDir:       paths.WorkDir,
			KeepExtracted: cfg.Pipeline.KeepExtracted,
		}, logger),
		extractor:  extract.New(logger),
		normalizer: normalize.New(logger),
		aggregator: aggregate.New(cfg.Pipeline.FillPolicy, logger),
		calculator: kfi.New(kfi.Options{
			PeerGroup:       cfg.Output.PeerGroup,
			PeerGroupColumn: peerGroupColumn,
		}, logger),
		writer: exporter.NewCSVWriter(paths, logger),
	}
}

// Metrics returns the collectors the pipeline records into
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

type tableOutcome struct {
	report  domain.TableReport
	records []domain.LongRecord
	err     error
}

// Run executes one full pass. A table that fails is recorded on its report
// and the run continues, unless the pipeline is strict. Duplicate pivot
// keys, output failures and configuration errors always abort the run.
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	ctx, span := infrastructure.StartSpan(ctx, "pipeline.run", attribute.String("run.id", runID))
	defer func() { infrastructure.EndSpan(span, err) }()

	manifest := NewManifest(runID, config.AppVersion, p.paths.InputDir)
	manifest.SetConfig("workers", p.cfg.Pipeline.Workers)
	manifest.SetConfig("strict", p.cfg.Pipeline.Strict)
	manifest.SetConfig("fill_policy", p.cfg.Pipeline.FillPolicy)
	manifest.SetConfig("tables", p.cfg.Pipeline.Tables)
	manifest.SetConfig("output_dir", p.paths.OutputDir)

	result = &Result{RunID: runID, Manifest: manifest, Metrics: p.metrics}
	defer func() { p.finish(ctx, result, err) }()

	p.logger.InfoContext(ctx, "Pipeline started",
		slog.String("input_dir", p.paths.InputDir),
		slog.String("output_dir", p.paths.OutputDir),
		slog.Int("workers", p.cfg.Pipeline.Workers),
		slog.String("fill_policy", p.cfg.Pipeline.FillPolicy))

	var selected []*rules.TableRule
	if err = p.stage(ctx, manifest, StageValidate, func(ctx context.Context) (map[string]interface{}, error) {
		if err := p.validator.ValidateInputDirectory(p.paths.InputDir, validation.TablePattern); err != nil {
			return nil, err
		}
		var err error
		if selected, err = p.rules.Select(p.cfg.Pipeline.Tables); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"tables":    len(selected),
			"unclaimed": p.warnUnclaimed(ctx),
		}, nil
	}); err != nil {
		return result, err
	}

	var outcomes []tableOutcome
	if err = p.stage(ctx, manifest, StageTables, func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		outcomes, err = p.processTables(ctx, selected)
		result.Reports = reports(outcomes)
		manifest.SetTables(result.Reports)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"failed": len(result.Failed())}, nil
	}); err != nil {
		return result, err
	}

	if len(result.Failed()) == len(outcomes) {
		err = apperrors.NewValidationError("no table could be processed")
		return result, err
	}

	if err = p.stage(ctx, manifest, StagePivot, func(ctx context.Context) (map[string]interface{}, error) {
		sets := make([][]domain.LongRecord, 0, len(outcomes))
		for _, o := range outcomes {
			sets = append(sets, o.records)
		}
		wide, err := p.aggregator.Pivot(aggregate.Concat(sets...))
		if err != nil {
			return nil, err
		}
		result.Wide = wide
		p.metrics.ObserveWide(len(wide.Rows), len(wide.Categories))
		return map[string]interface{}{"rows": len(wide.Rows), "categories": len(wide.Categories)}, nil
	}); err != nil {
		return result, err
	}

	if err = p.stage(ctx, manifest, StageKFI, func(ctx context.Context) (map[string]interface{}, error) {
		return p.computeKFI(ctx, result)
	}); err != nil {
		return result, err
	}

	if err = p.stage(ctx, manifest, StageExport, func(ctx context.Context) (map[string]interface{}, error) {
		return p.export(ctx, result)
	}); err != nil {
		// nothing usable was written
		result.KFI = nil
		return result, err
	}

	return result, nil
}

// warnUnclaimed logs table sources in the input directory that no rule reads
// and returns how many there are.
func (p *Pipeline) warnUnclaimed(ctx context.Context) int {
	found, err := p.discovery.FindTableFiles()
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to list table files", slog.String("error", err.Error()))
		return 0
	}
	unclaimed := 0
	for _, f := range found {
		id, _ := files.ParseTableID(f.Name)
		if _, ok := p.rules.Lookup(id); ok {
			continue
		}
		unclaimed++
		p.logger.WarnContext(ctx, "Table file has no rule",
			slog.Int("table_id", id),
			slog.String("file", f.Name))
	}
	return unclaimed
}

// computeKFI derives the indicator table from result.Wide
func (p *Pipeline) computeKFI(ctx context.Context, result *Result) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result.Wide == nil {
		return nil, apperrors.NewValidationError("no wide table to compute indicators from")
	}
	table := p.calculator.Compute(result.Wide)
	p.metrics.ObserveKFI(table.Columns, table.UndefinedCounts())
	result.KFI = table
	return map[string]interface{}{"rows": len(table.Rows)}, nil
}

// stage runs fn as a named, traced, timed step recorded in the manifest
func (p *Pipeline) stage(ctx context.Context, m *Manifest, name string, fn func(context.Context) (map[string]interface{}, error)) error {
	ctx, span := infrastructure.StartSpan(ctx, "pipeline."+name)
	m.RecordStageStart(name)

	metadata, err := fn(ctx)
	var elapsed time.Duration
	if err != nil {
		elapsed = m.RecordStageFailure(name, err)
	} else {
		elapsed = m.RecordStageCompletion(name, metadata)
	}
	p.metrics.ObserveStage(name, elapsed)
	infrastructure.EndSpan(span, err)

	if err != nil {
		p.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", name),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()))
		return err
	}
	p.logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.Duration("duration", elapsed))
	return nil
}

// processTables runs every selected table, sequentially or on a bounded
// errgroup. Outcomes are returned in rule order regardless of scheduling.
// Table failures are returned as an error only in strict mode.
func (p *Pipeline) processTables(ctx context.Context, selected []*rules.TableRule) ([]tableOutcome, error) {
	outcomes := make([]tableOutcome, len(selected))
	for i, rule := range selected {
		outcomes[i].report = domain.TableReport{TableID: rule.ID, Status: domain.TableStatusSkipped}
	}

	workers := p.cfg.Pipeline.Workers
	if workers <= 1 || len(selected) <= 1 {
		for i, rule := range selected {
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}
			outcomes[i] = p.processTable(ctx, rule)
			if outcomes[i].err != nil && p.cfg.Pipeline.Strict {
				return outcomes, strictError(outcomes[i].err)
			}
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rule := range selected {
		i, rule := i, rule
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processTable(gctx, rule)
			if outcomes[i].err != nil && p.cfg.Pipeline.Strict {
				return strictError(outcomes[i].err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func strictError(err error) error {
	return fmt.Errorf("strict mode: %w", err)
}

// processTable turns one table id into long records. Errors are recorded on
// the outcome's report rather than returned.
func (p *Pipeline) processTable(ctx context.Context, rule *rules.TableRule) tableOutcome {
	out := tableOutcome{report: domain.TableReport{TableID: rule.ID}}

	ctx, span := infrastructure.StartSpan(ctx, "table.process", attribute.Int("table.id", rule.ID))
	start := time.Now()
	records, err := p.runTable(ctx, rule, &out.report)
	infrastructure.EndSpan(span, err)

	if err != nil {
		out.err = err
		out.report.Status = domain.TableStatusFailed
		out.report.Error = err.Error()
		p.metrics.ObserveTable(out.report, string(errorType(err)))
		p.logger.WarnContext(ctx, "Table failed",
			slog.Int("table_id", rule.ID),
			slog.String("type", string(errorType(err))),
			slog.String("error", err.Error()))
		return out
	}

	out.records = records
	out.report.Records = len(records)
	out.report.Status = domain.TableStatusOK
	p.metrics.ObserveTable(out.report, "")
	p.logger.InfoContext(ctx, "Table processed",
		slog.Int("table_id", rule.ID),
		slog.String("file", out.report.Source),
		slog.Int("rows", out.report.RowsRead),
		slog.Int("dropped", out.report.TotalDropped()),
		slog.Int("records", len(records)),
		slog.Duration("duration", time.Since(start)))
	return out
}

func (p *Pipeline) runTable(ctx context.Context, rule *rules.TableRule, report *domain.TableReport) ([]domain.LongRecord, error) {
	src, err := p.discovery.FindTable(rule.ID, rule.FileCandidates())
	if err != nil {
		return nil, err
	}
	if err := p.validator.ValidateSource(src.Path, rule.Source); err != nil {
		return nil, err
	}

	table, err := p.loader.Load(ctx, rule.ID, src, report)
	if err != nil {
		return nil, err
	}

	rows, err := p.extractor.Extract(rule, table, report)
	if err != nil {
		return nil, err
	}

	return p.normalizer.Normalize(rule.ID, rows, report), nil
}

// errorType classifies a table failure for metrics and the summary
func errorType(err error) apperrors.ErrorType {
	if t := apperrors.TypeOf(err); t != "" {
		return t
	}
	return "INTERNAL"
}

// export writes the wide table, the indicators and the optional workbook
func (p *Pipeline) export(ctx context.Context, result *Result) (map[string]interface{}, error) {
	if err := p.validator.ValidateOutputDirectory(p.paths.OutputDir); err != nil {
		return nil, err
	}

	token := p.cfg.Output.UndefinedToken
	if err := p.writer.WriteWide(p.paths.WideCSV, result.Wide, token); err != nil {
		return nil, err
	}
	result.Manifest.AddOutput(OutputWide, p.paths.WideCSV, len(result.Wide.Rows), len(domain.KeyColumns)+len(result.Wide.Categories))

	kfiColumns := len(domain.KeyColumns) + len(result.KFI.Columns)
	if result.KFI.HasPeerGroup() {
		kfiColumns++
	}
	if err := p.writer.WriteKFI(p.paths.KFICSV, result.KFI, token); err != nil {
		return nil, err
	}
	result.Manifest.AddOutput(OutputKFI, p.paths.KFICSV, len(result.KFI.Rows), kfiColumns)

	written := []string{p.paths.WideCSV, p.paths.KFICSV}
	if p.cfg.Output.Workbook {
		if err := exporter.WriteWorkbook(p.paths.Workbook, result.KFI, result.Wide, token); err != nil {
			return nil, err
		}
		result.Manifest.AddOutput(OutputWorkbook, p.paths.Workbook, len(result.KFI.Rows), kfiColumns)
		written = append(written, p.paths.Workbook)
	}

	p.logger.InfoContext(ctx, "Outputs written", slog.Any("files", written))
	return map[string]interface{}{"files": written}, nil
}

// finish closes out the manifest and metrics. Failures here are logged;
// they never change the run's outcome.
func (p *Pipeline) finish(ctx context.Context, result *Result, runErr error) {
	status := RunStatusCompleted
	switch {
	case runErr != nil:
		status = RunStatusFailed
	case result.Partial():
		status = RunStatusPartial
	}
	result.Manifest.Finish(status, runErr)
	p.metrics.ObserveRun(runErr == nil, time.Now())

	if p.paths.Manifest != "" {
		if err := result.Manifest.SaveToFile(p.paths.Manifest); err != nil {
			p.logger.ErrorContext(ctx, "Failed to save manifest",
				slog.String("file", p.paths.Manifest),
				slog.String("error", err.Error()))
		}
	}
	if path := p.cfg.Telemetry.MetricsFile; path != "" {
		if err := p.metrics.WriteToTextfile(path); err != nil {
			p.logger.ErrorContext(ctx, "Failed to write metrics",
				slog.String("file", path),
				slog.String("error", err.Error()))
		}
	}

	p.logger.InfoContext(ctx, "Pipeline finished",
		slog.String("status", status),
		slog.Int("tables", len(result.Reports)),
		slog.Int("failed", len(result.Failed())),
		slog.String("duration", result.Manifest.Duration))
}

func reports(outcomes []tableOutcome) []domain.TableReport {
	out := make([]domain.TableReport, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.report
	}
	return out
}

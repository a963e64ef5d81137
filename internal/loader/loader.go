package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/internal/files"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Options control how raw sources are read
type Options struct {
	// HeaderRows is the number of preamble lines before the column header
	HeaderRows int
	// ExcludedYear reports academic years whose rows are discarded
	ExcludedYear func(year string) bool
	// WorkDir receives extracted archive members; the system temp dir when empty
	WorkDir string
	// KeepExtracted leaves extracted archive members on disk
	KeepExtracted bool
}

// Loader reads raw table sources into normalized RawTables
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Loader
func New(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		opts:   opts,
		logger: logger.With(slog.String("component", "loader")),
	}
}

// Load reads one table source. The source kind is taken from src.Kind, or
// from the file extension when that is SourceAuto. Rows read and rows dropped
// during normalization are recorded on report.
func (l *Loader) Load(ctx context.Context, tableID int, src files.FileInfo, report *domain.TableReport) (*RawTable, error) {
	kind := src.Kind
	if kind == "" || kind == domain.SourceAuto {
		kind = files.KindOf(src.Path)
	}
	report.Source = src.Name
	report.Kind = kind

	l.logger.Debug("Loading table",
		slog.Int("table_id", tableID),
		slog.String("file", src.Path),
		slog.String("kind", string(kind)))

	var (
		table *RawTable
		err   error
	)
	switch kind {
	case domain.SourceCSV:
		table, err = l.loadFile(tableID, src.Path, src.Name, readCSVFile, report)
	case domain.SourceXLSX:
		table, err = l.loadFile(tableID, src.Path, src.Name, readWorkbook, report)
	case domain.SourceZip:
		table, err = l.loadArchive(ctx, tableID, src, report)
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("table %d: unsupported source %s", tableID, src.Path)).
			WithContext("table_id", tableID)
	}
	if err != nil {
		return nil, err
	}
	table.Kind = kind
	for _, part := range table.Segments {
		part.Kind = kind
	}

	l.logger.Info("Table loaded",
		slog.Int("table_id", tableID),
		slog.String("file", src.Name),
		slog.Int("rows", table.RowCount()),
		slog.Int("segments", len(table.Parts())),
		slog.Int("dropped", report.TotalDropped()))
	return table, nil
}

type readFunc func(path string, headerRows int) ([]string, [][]string, error)

func (l *Loader) loadFile(tableID int, path, source string, read readFunc, report *domain.TableReport) (*RawTable, error) {
	header, rows, err := read(path, l.opts.HeaderRows)
	if err != nil {
		return nil, l.readError(tableID, source, err)
	}
	report.RowsRead += len(rows)
	return normalize(tableID, source, header, rows, l.opts.ExcludedYear, report)
}

func (l *Loader) readError(tableID int, source string, err error) error {
	if errors.Is(err, errNoHeader) {
		return apperrors.NewSchemaError(tableID, fmt.Sprintf("%s: %v", source, err)).
			WithContext("file", source)
	}
	return apperrors.NewParsingError(fmt.Sprintf("table %d: read %s", tableID, source), err).
		WithContext("table_id", tableID).
		WithContext("file", source)
}

// loadArchive extracts the yearly CSV members of a zip source, normalizes each
// one and concatenates their rows in member-name order. Consecutive members
// sharing a header are merged; a header change starts a new segment so that
// category extraction runs against each member's own columns.
func (l *Loader) loadArchive(ctx context.Context, tableID int, src files.FileInfo, report *domain.TableReport) (*RawTable, error) {
	workDir := l.opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("create work dir %s", workDir), err)
	}
	dir, err := os.MkdirTemp(workDir, fmt.Sprintf("table-%d-", tableID))
	if err != nil {
		return nil, apperrors.NewStorageError("create extraction dir", err)
	}
	if l.opts.KeepExtracted {
		l.logger.Info("Keeping extracted archive members",
			slog.Int("table_id", tableID),
			slog.String("directory", dir))
	} else {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				l.logger.Warn("Failed to remove extraction dir",
					slog.String("directory", dir),
					slog.String("error", err.Error()))
			}
		}()
	}

	paths, err := extractArchive(src.Path, dir)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("table %d: extract %s", tableID, src.Name), err).
			WithContext("table_id", tableID).
			WithContext("file", src.Name)
	}
	if len(paths) == 0 {
		return nil, apperrors.NewSchemaError(tableID, fmt.Sprintf("%s contains no csv members", src.Name)).
			WithContext("file", src.Name)
	}

	var segments []*RawTable
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		member := fmt.Sprintf("%s:%s", src.Name, filepath.Base(path))
		part, err := l.loadFile(tableID, path, member, readCSVFile, report)
		if err != nil {
			return nil, err
		}

		l.logger.Debug("Archive member loaded",
			slog.Int("table_id", tableID),
			slog.String("file", member),
			slog.Int("rows", len(part.Rows)))

		if n := len(segments); n > 0 && slices.Equal(segments[n-1].Columns, part.Columns) {
			segments[n-1].Rows = append(segments[n-1].Rows, part.Rows...)
			continue
		}
		if len(segments) > 0 {
			l.logger.Info("Archive member header differs from previous member",
				slog.Int("table_id", tableID),
				slog.String("file", member),
				slog.Any("columns", part.Columns))
		}
		part.Source = src.Name
		segments = append(segments, part)
	}

	if len(segments) == 1 {
		return segments[0], nil
	}
	return &RawTable{TableID: tableID, Source: src.Name, Segments: segments}, nil
}

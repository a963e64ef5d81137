package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every resolved location a run reads from or writes to.
// It is the single source of truth for file paths.
type Paths struct {
	InputDir  string
	OutputDir string
	WorkDir   string
	LogsDir   string
	RulesFile string

	// Well-known output files
	WideCSV  string
	KFICSV   string
	Workbook string
	Manifest string
}

// GetPaths resolves the configured locations against the working directory
func (c *Config) GetPaths() (*Paths, error) {
	resolve := func(p string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		return abs, nil
	}

	paths := &Paths{}
	for _, item := range []struct {
		dst *string
		src string
	}{
		{&paths.InputDir, c.Paths.InputDir},
		{&paths.OutputDir, c.Paths.OutputDir},
		{&paths.WorkDir, c.Paths.WorkDir},
		{&paths.LogsDir, c.Paths.LogsDir},
		{&paths.RulesFile, c.Paths.RulesFile},
	} {
		resolved, err := resolve(item.src)
		if err != nil {
			return nil, err
		}
		*item.dst = resolved
	}

	paths.WideCSV = paths.GetOutputPath(c.Output.WideFile)
	paths.KFICSV = paths.GetOutputPath(c.Output.KFIFile)
	paths.Workbook = paths.GetOutputPath(c.Output.WorkbookFile)
	if c.Output.ManifestFile != "" {
		paths.Manifest = paths.GetOutputPath(c.Output.ManifestFile)
	}

	return paths, nil
}

// EnsureDirectories creates the output, logs and work directories if they don't exist.
// The input directory is never created.
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.OutputDir, p.LogsDir, p.WorkDir}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetOutputPath returns name inside the output directory unless it is already absolute
func (p *Paths) GetOutputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.OutputDir, name)
}

// GetLogPath returns name inside the logs directory unless it is already absolute
func (p *Paths) GetLogPath(name string) string {
	if filepath.IsAbs(name) || p.LogsDir == "" {
		return name
	}
	return filepath.Join(p.LogsDir, name)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

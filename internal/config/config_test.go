package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ukhe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, FillZero, cfg.Pipeline.FillPolicy)
	assert.Equal(t, WideFileName, cfg.Output.WideFile)
	assert.Equal(t, KFIFileName, cfg.Output.KFIFile)
	assert.Equal(t, DefaultUndefinedToken, cfg.Output.UndefinedToken)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
paths:
  input_dir: /srv/hesa/raw
  output_dir: /srv/hesa/out
pipeline:
  workers: 3
  fill_policy: Undefined
  tables: [1, 3, 12]
output:
  peer_group: [10007792, 10007774]
  workbook: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/hesa/raw", cfg.Paths.InputDir)
	assert.Equal(t, "/srv/hesa/out", cfg.Paths.OutputDir)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, FillUndefined, cfg.Pipeline.FillPolicy)
	assert.Equal(t, []int{1, 3, 12}, cfg.Pipeline.Tables)
	assert.Equal(t, []int64{10007792, 10007774}, cfg.Output.PeerGroup)
	assert.True(t, cfg.Output.Workbook)

	// untouched sections keep their defaults
	assert.Equal(t, KFIFileName, cfg.Output.KFIFile)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
pipeline:
  workers: 3
logging:
  level: warn
`)
	t.Setenv("UKHE_PIPELINE_WORKERS", "8")
	t.Setenv("UKHE_PIPELINE_STRICT", "true")
	t.Setenv("UKHE_OUTPUT_UNDEFINED_TOKEN", "NaN")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.Strict)
	assert.Equal(t, "NaN", cfg.Output.UndefinedToken)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := writeConfigFile(t, `
pipeline:
  workers: 2
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "pipeline:\n  wrokers: 2\n"},
		{"malformed yaml", "pipeline: [\n"},
		{"zero workers", "pipeline:\n  workers: 0\n"},
		{"bad fill policy", "pipeline:\n  fill_policy: average\n"},
		{"negative table id", "pipeline:\n  tables: [1, -3]\n"},
		{"empty output dir", "paths:\n  output_dir: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, LogFileName, cfg.Logging.FilePath)
}

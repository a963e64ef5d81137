package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Stage statuses
const (
	StageStatusRunning   = "running"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// Manifest records what a run did: its settings, per-table outcomes, stage
// timings and the files it wrote.
type Manifest struct {
	mu sync.RWMutex

	// Identity
	RunID     string    `json:"run_id"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  string    `json:"duration,omitempty"`

	// Configuration
	InputDir string                 `json:"input_dir"`
	Config   map[string]interface{} `json:"config,omitempty"`

	Tables  []domain.TableReport   `json:"tables"`
	Stages  []StageExecution       `json:"stages"`
	Outputs map[string]*OutputInfo `json:"outputs"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	Name      string                 `json:"name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// OutputInfo describes one written file
type OutputInfo struct {
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Size    int64  `json:"size"`
}

// NewManifest creates a manifest for a run starting now
func NewManifest(runID, version, inputDir string) *Manifest {
	return &Manifest{
		RunID:     runID,
		Version:   version,
		StartTime: time.Now(),
		InputDir:  inputDir,
		Config:    make(map[string]interface{}),
		Stages:    []StageExecution{},
		Outputs:   make(map[string]*OutputInfo),
		Status:    RunStatusRunning,
	}
}

// SetConfig records a run setting
func (m *Manifest) SetConfig(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config[key] = value
}

// RecordStageStart records the start of a stage
func (m *Manifest) RecordStageStart(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		Name:      name,
		StartTime: time.Now(),
		Status:    StageStatusRunning,
	})
}

// RecordStageCompletion marks a stage completed and returns its duration
func (m *Manifest) RecordStageCompletion(name string, metadata map[string]interface{}) time.Duration {
	return m.finishStage(name, StageStatusCompleted, nil, metadata)
}

// RecordStageFailure marks a stage failed and returns its duration
func (m *Manifest) RecordStageFailure(name string, err error) time.Duration {
	return m.finishStage(name, StageStatusFailed, err, nil)
}

func (m *Manifest) finishStage(name, status string, err error, metadata map[string]interface{}) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.Stages) - 1; i >= 0; i-- {
		stage := &m.Stages[i]
		if stage.Name != name || stage.Status != StageStatusRunning {
			continue
		}
		stage.EndTime = time.Now()
		elapsed := stage.EndTime.Sub(stage.StartTime)
		stage.Duration = elapsed.String()
		stage.Status = status
		stage.Metadata = metadata
		if err != nil {
			stage.Error = err.Error()
		}
		return elapsed
	}
	return 0
}

// SetTables stores the per-table reports
func (m *Manifest) SetTables(reports []domain.TableReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables = append([]domain.TableReport(nil), reports...)
}

// AddOutput records a written file, reading its size from disk
func (m *Manifest) AddOutput(kind, path string, rows, columns int) {
	info := &OutputInfo{Path: path, Rows: rows, Columns: columns}
	if st, err := os.Stat(path); err == nil {
		info.Size = st.Size()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs[kind] = info
}

// Finish sets the final status
func (m *Manifest) Finish(status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime).String()
	m.Status = status
	if err != nil {
		m.Error = err.Error()
	}
}

// SaveToFile writes the manifest as indented JSON
func (m *Manifest) SaveToFile(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile reads a manifest written by SaveToFile
func LoadManifestFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

func TestMetrics_ObserveTable(t *testing.T) {
	m := NewMetrics()

	report := domain.TableReport{TableID: 6, RowsRead: 120, Records: 30}
	report.AddDropped(domain.DropFiltered, 80)
	report.AddDropped(domain.DropSectorTotal, 10)
	m.ObserveTable(report, "")
	m.ObserveTable(domain.TableReport{TableID: 9}, "SCHEMA")

	assert.Equal(t, 120.0, testutil.ToFloat64(m.rowsRead.WithLabelValues("6")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.records.WithLabelValues("6")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("6", domain.DropFiltered)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("6", domain.DropSectorTotal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tableFailures.WithLabelValues("9", "SCHEMA")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tableFailures))
}

func TestMetrics_GaugesAndRun(t *testing.T) {
	m := NewMetrics()
	m.ObserveWide(250, 47)
	m.ObserveKFI([]string{"surplus_vs_income", "staff_vs_income"}, map[string]int{"staff_vs_income": 3})
	m.ObserveStage(StagePivot, 20*time.Millisecond)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.ObserveRun(true, at)

	assert.Equal(t, 250.0, testutil.ToFloat64(m.wideRows))
	assert.Equal(t, 47.0, testutil.ToFloat64(m.wideCategories))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.kfiUndefined.WithLabelValues("surplus_vs_income")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.kfiUndefined.WithLabelValues("staff_vs_income")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastRunSuccess))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastRunTimestamp))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))

	m.ObserveRun(false, at)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastRunSuccess))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveWide(2, 5)
	m.ObserveRun(true, time.Now())

	path := filepath.Join(t.TempDir(), "ukhe.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE ukhe_wide_rows gauge")
	assert.Contains(t, text, "ukhe_wide_categories 5")
	assert.True(t, strings.HasSuffix(text, "\n"))
}

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordRun(t *testing.T) {
	m := New()
	m.AddRows(SourceUsage, 10)
	m.AddRows(SourceUsage, 0)
	m.ObserveStep("load_usage", time.Now(), nil)
	m.RunFinished(time.Unix(1566300000, 0), 4, nil)
	m.RunFinished(time.Now(), 0, errors.New("boom"))

	if got := testutil.ToFloat64(m.RowsTotal.WithLabelValues(SourceUsage)); got != 10 {
		t.Fatalf("rows: got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(ResultError)); got != 1 {
		t.Fatalf("error runs: got %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != 1566300000 {
		t.Fatalf("last success: got %v", got)
	}
	if got := testutil.ToFloat64(m.Groups); got != 4 {
		t.Fatalf("groups: got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.AddRows(SourceOutput, 3)
	path := filepath.Join(t.TempDir(), "water_usage.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `water_usage_rows_total{source="output"} 3`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.AddRows(SourceUsage, 1)
	m.ObserveStep("x", time.Now(), nil)
	m.RunFinished(time.Now(), 1, nil)
	if err := m.WriteTextfile("ignored"); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

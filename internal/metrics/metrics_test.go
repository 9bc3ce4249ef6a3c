package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"attachr/internal/attach"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestCollectorRecordsTransfers(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))

	c.TransferStarted("local_file")
	c.TransferStarted("local_file")
	if got := gaugeValue(t, c.inFlight.WithLabelValues("local_file")); got != 2 {
		t.Fatalf("in_flight=%v, want 2", got)
	}

	c.TransferFinished("local_file", attach.OutcomeSucceeded, 150*time.Millisecond)
	c.TransferFinished("local_file", attach.OutcomeSuperseded, time.Millisecond)

	if got := gaugeValue(t, c.inFlight.WithLabelValues("local_file")); got != 0 {
		t.Fatalf("in_flight=%v, want 0", got)
	}
	if got := counterValue(t, c.transfersStarted.WithLabelValues("local_file")); got != 2 {
		t.Fatalf("started=%v, want 2", got)
	}
	if got := counterValue(t, c.transfersFinished.WithLabelValues("local_file", "succeeded")); got != 1 {
		t.Fatalf("finished(succeeded)=%v, want 1", got)
	}
	if got := histogramCount(t, c.transferDuration.WithLabelValues("local_file", "superseded")); got != 1 {
		t.Fatalf("duration(superseded) count=%v, want 1", got)
	}
}

func TestCollectorRecordsRejections(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))
	c.Rejected(attach.KindBatchCount, 3)
	c.Rejected(attach.KindBatchCount, 0)
	c.Rejected(attach.KindType, 1)

	if got := counterValue(t, c.rejected.WithLabelValues("batch-count")); got != 3 {
		t.Fatalf("rejected(batch-count)=%v, want 3", got)
	}
	if got := counterValue(t, c.rejected.WithLabelValues("type")); got != 1 {
		t.Fatalf("rejected(type)=%v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.TransferStarted("local_file")
	c.TransferFinished("local_file", attach.OutcomeFailed, time.Second)
	c.Rejected(attach.KindSize, 1)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"), WithConstLabels(prometheus.Labels{"area": "docs"}))
	c.TransferStarted("remote_url")

	path := filepath.Join(t.TempDir(), "attachr.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `test_transfers_started_total{area="docs",method="remote_url"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}

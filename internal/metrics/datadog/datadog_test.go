package datadog

import (
	"reflect"
	"testing"

	"graph2sql/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend(Config{}) error = nil, want error")
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"step": "vertex", "job": "j1", "status": "success"})
	want := []string{"job:j1", "status:success", "step:vertex"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags() = %v, want %v", got, want)
	}
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
}

// TestBackendUDP sends to a local UDP address; DogStatsD is fire-and-forget
// so no agent needs to be listening.
func TestBackendUDP(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "graph2sql.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	defer b.Close()

	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": "inserted"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "vertex"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestZeroBackendIsNoop(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.RowsTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

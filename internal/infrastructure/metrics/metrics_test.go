package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.SettlementCalculations == nil || m.HTTPRequests == nil || m.AuditEntriesCreated == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.SettlementLockBusy.Inc()
	m.SettlementCalculations.WithLabelValues("created").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.SettlementLockBusy); got != 1 {
		t.Fatalf("expected busy counter 1, got %v", got)
	}
}

func TestNewIsolatedRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}

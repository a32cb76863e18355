package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe("take", "taken", time.Now())
	m.Observe("take", "taken", time.Now())
	m.Observe("take", "not_tracked", time.Now())

	if got := testutil.ToFloat64(m.operations.WithLabelValues("take", "taken")); got != 2 {
		t.Fatalf("want 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("take", "not_tracked")); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
}

func TestPurged(t *testing.T) {
	m := New()
	m.Purged(3)
	m.Purged(0)
	if got := testutil.ToFloat64(m.purged); got != 3 {
		t.Fatalf("want 3, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Observe("take", "taken", time.Now())
	m.Purged(1)
	if m.Handler() == nil {
		t.Fatal("want a handler")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe("add", "added", time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `medtracker_operations_total{op="add",outcome="added"} 1`) {
		t.Fatalf("counter missing from exposition:\n%s", body)
	}
}

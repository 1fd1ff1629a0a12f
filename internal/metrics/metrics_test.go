package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EvaluationsTotal.WithLabelValues("cross").Inc()
	m.EvaluationsTotal.WithLabelValues("cross").Inc()
	m.SignalsTotal.WithLabelValues("cross", "BUY").Inc()
	m.EvaluateDur.Observe(0.0002)

	if got := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("cross")); got != 2 {
		t.Errorf("evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("cross", "BUY")); got != 1 {
		t.Errorf("signals = %v, want 1", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, name := range []string{"tautils_evaluations_total", "tautils_signals_total", "tautils_evaluate_duration_seconds"} {
		if !found[name] {
			t.Errorf("%s metric not found", name)
		}
	}
}

func TestHealthStatus_ServeHTTP(t *testing.T) {
	h := NewHealthStatus()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before sqlite check, got %d", rec.Code)
	}

	h.mu.Lock()
	h.SQLiteOK = true
	h.mu.Unlock()
	h.ObserveBar(time.Date(2024, 1, 15, 9, 15, 0, 0, time.UTC))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		BarsProcessed int64  `json:"bars_processed"`
		LastBarTime   string `json:"last_bar_time"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.BarsProcessed != 1 || body.LastBarTime != "2024-01-15T09:15:00Z" {
		t.Errorf("unexpected body: %+v", body)
	}

	h.SetRedisEnabled(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected degraded with redis enabled but disconnected, got %d", rec.Code)
	}
}

func TestServe(t *testing.T) {
	srv, err := Serve("127.0.0.1:0", NewHealthStatus())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}

func TestServe_BindError(t *testing.T) {
	srv, err := Serve("127.0.0.1:0", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	if _, err := Serve(srv.Addr, nil); err == nil {
		t.Fatal("expected an error binding an address already in use")
	}
}

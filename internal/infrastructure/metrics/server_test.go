package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestHealthz(t *testing.T) {
	s := NewServer("127.0.0.1:0", nopLogger{})
	s.AddHealthCheck("api", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	s.AddHealthCheck("mqtt", func(context.Context) error { return errors.New("mqtt: client not connected") })
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Healthy bool              `json:"healthy"`
		Checks  map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Healthy || body.Checks["api"] != "ok" || !strings.Contains(body.Checks["mqtt"], "not connected") {
		t.Errorf("body = %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	Command("api", "tablet_screen", OutcomeOK)

	s := NewServer("127.0.0.1:0", nopLogger{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop() //nolint:errcheck // test cleanup

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "panelnode_commands_total") {
		t.Error("/metrics missing panelnode_commands_total")
	}
}

func TestCollectors(t *testing.T) {
	before := testutil.ToFloat64(apiConnections)
	ConnectionOpened()
	ConnectionOpened()
	ConnectionClosed()
	if got := testutil.ToFloat64(apiConnections) - before; got != 1 {
		t.Errorf("api_connections delta = %v, want 1", got)
	}

	FrameIn("ping_request")
	if got := testutil.ToFloat64(apiFrames.WithLabelValues("in", "ping_request")); got < 1 {
		t.Errorf("api_frames_total{in,ping_request} = %v", got)
	}

	Publish("status", OutcomeError)
	if got := testutil.ToFloat64(mqttPublishes.WithLabelValues("status", OutcomeError)); got < 1 {
		t.Errorf("mqtt_publishes_total = %v", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := NewServer("127.0.0.1:0", nopLogger{}).Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

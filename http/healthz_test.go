package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestHealthzHandler_ServeHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	reachable := strings.Replace(srv.URL, "http://", "", 1)

	tests := []struct {
		name       string
		target     string
		checkAddr  []string
		stores     map[string]Pinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "liveness when healthy",
			target:     "/healthz",
			checkAddr:  []string{"foo:9090"},
			stores:     map[string]Pinger{"database": &mockPinger{}, "blob_store": &mockPinger{}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": checkOK, "blob_store": checkOK},
		},
		{
			name:       "liveness when the database is unavailable",
			target:     "/healthz",
			stores:     map[string]Pinger{"database": &mockPinger{error: true}, "blob_store": &mockPinger{}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": checkUnavailable, "blob_store": checkOK},
		},
		{
			name:       "liveness when the blob store is unavailable",
			target:     "/healthz",
			stores:     map[string]Pinger{"database": &mockPinger{}, "blob_store": &mockPinger{error: true}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": checkOK, "blob_store": checkUnavailable},
		},
		{
			name:       "readiness when healthy",
			target:     "/healthz?readiness=1",
			checkAddr:  []string{reachable},
			stores:     map[string]Pinger{"database": &mockPinger{}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": checkOK, reachable: checkOK},
		},
		{
			name:       "readiness when a dependency is unreachable",
			target:     "/healthz?readiness=1",
			checkAddr:  []string{"foo:9090"},
			stores:     map[string]Pinger{"database": &mockPinger{}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": checkOK, "foo:9090": checkUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewHealthzHandler(tt.checkAddr, tt.stores).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if recorder.Code != tt.wantStatus {
				t.Errorf("expected %d response code, but got %d", tt.wantStatus, recorder.Code)
			}

			var report healthReport
			if err := json.Unmarshal(recorder.Body.Bytes(), &report); err != nil {
				t.Fatalf("unable to decode health report: %s", err)
			}
			if report.Healthy != (tt.wantStatus == http.StatusOK) {
				t.Errorf("healthy flag %v does not match status %d", report.Healthy, recorder.Code)
			}
			if diff := deep.Equal(report.Checks, tt.wantChecks); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestPingerFunc(t *testing.T) {
	called := false
	p := PingerFunc(func(context.Context) error {
		called = true
		return nil
	})

	if err := p.PingContext(context.Background()); err != nil || !called {
		t.Errorf("expected the wrapped func to be called, got err %v", err)
	}
}

type mockPinger struct {
	error bool
}

func (m *mockPinger) PingContext(context.Context) error {
	if m.error {
		return errors.New("oops")
	}
	return nil
}

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthMux(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		ready  bool
		status int
	}{
		{name: "healthz_always_ok", path: "/healthz", ready: false, status: http.StatusOK},
		{name: "readyz_before_first_generation", path: "/readyz", ready: false, status: http.StatusServiceUnavailable},
		{name: "readyz_after_first_generation", path: "/readyz", ready: true, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := HealthMux(func() bool { return tt.ready })
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMetricsMux(t *testing.T) {
	rec := httptest.NewRecorder()
	MetricsMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGraphQLMux(t *testing.T) {
	hits := 0
	mux := GraphQLMux(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	for _, path := range []string{"/graphql", "/"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	assert.Equal(t, 2, hits)
}

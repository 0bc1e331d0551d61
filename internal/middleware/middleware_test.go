package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/hornshoofs/scoring-api/internal/logging"
)

func TestLogging_RequestID(t *testing.T) {
	var seen string
	r := mux.NewRouter()
	r.Use(Logging(logging.NewNop()))
	r.HandleFunc("/x", func(w http.ResponseWriter, req *http.Request) {
		seen = logging.RequestID(req.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestLogging_GeneratesRequestID(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Logging(logging.NewNop()))
	r.HandleFunc("/x", func(w http.ResponseWriter, req *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.NewNop())
	r := mux.NewRouter()
	r.Use(rl.Handler())
	r.HandleFunc("/x", func(w http.ResponseWriter, req *http.Request) {})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

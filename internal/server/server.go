// Package server is the HTTP listener: it reads the request body, routes
// the single "method" operation into the dispatcher and serializes the
// response envelope back to the wire. The dispatcher never touches
// sockets.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hornshoofs/scoring-api/internal/dispatch"
	"github.com/hornshoofs/scoring-api/internal/httputil"
	"github.com/hornshoofs/scoring-api/internal/logging"
	"github.com/hornshoofs/scoring-api/internal/metrics"
	"github.com/hornshoofs/scoring-api/internal/middleware"
	"github.com/hornshoofs/scoring-api/internal/store"
)

// errorText maps response classifications to their default error body.
var errorText = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not Found",
	http.StatusUnprocessableEntity: "Invalid Request",
	http.StatusInternalServerError: "Internal Server Error",
}

// Server wires the dispatcher behind the HTTP surface.
type Server struct {
	dispatcher *dispatch.Handler
	store      *store.Client
	log        *logging.Logger
	metrics    *metrics.Metrics
	limiter    *middleware.RateLimiter
}

// New builds a server. The limiter is optional.
func New(d *dispatch.Handler, st *store.Client, log *logging.Logger, m *metrics.Metrics, limiter *middleware.RateLimiter) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	return &Server{dispatcher: d, store: st, log: log, metrics: m, limiter: limiter}
}

// Router builds the HTTP routing table with the middleware chain.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(s.log))
	r.Use(middleware.Metrics(s.metrics))
	if s.limiter != nil {
		r.Use(s.limiter.Handler())
	}
	r.HandleFunc("/method", s.handleMethod).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log.ForRequest(ctx)

	var body map[string]any
	if err := httputil.DecodeJSON(r.Body, &body); err != nil {
		log.WithError(err).Info("unparseable request body")
		writeEnvelope(w, http.StatusBadRequest, nil)
		return
	}

	rctx := &dispatch.Context{RequestID: logging.RequestID(ctx)}
	payload, code, err := s.dispatch(r, body, rctx)
	if err != nil {
		// Outer guard: anything escaping the dispatcher, including
		// store unavailability on the mandatory path, is unexpected.
		log.WithError(err).Error("unexpected error during execution")
		writeEnvelope(w, http.StatusInternalServerError, nil)
		return
	}

	entry := log.WithField("code", code)
	if len(rctx.Has) > 0 {
		entry = entry.WithField("has", rctx.Has)
	}
	if rctx.NClients > 0 {
		entry = entry.WithField("nclients", rctx.NClients)
	}
	entry.Info("method dispatched")

	writeEnvelope(w, code, payload)
}

// dispatch invokes the handler, converting panics into errors so the
// outer guard classifies them as INTERNAL_ERROR.
func (s *Server) dispatch(r *http.Request, body map[string]any, rctx *dispatch.Context) (payload any, code int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during dispatch: %v", rec)
		}
	}()
	return s.dispatcher.Handle(r.Context(), body, rctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	code := http.StatusOK
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["store"] = "ok"
		}
	}
	httputil.WriteJSON(w, code, status)
}

// writeEnvelope serializes the wire envelope: {"response": ..., "code"}
// on success, {"error": ..., "code"} otherwise. On failure the payload,
// when present, is the human-readable message; otherwise the default
// text for the code is used.
func writeEnvelope(w http.ResponseWriter, code int, payload any) {
	if code == http.StatusOK {
		httputil.WriteJSON(w, code, map[string]any{"response": payload, "code": code})
		return
	}
	text := errorText[code]
	if text == "" {
		text = "Unknown Error"
	}
	if msg, ok := payload.(string); ok && msg != "" {
		text = text + " " + msg
	}
	httputil.WriteJSON(w, code, map[string]any{"error": text, "code": code})
}

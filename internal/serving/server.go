package serving

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"driftgate/adapters/store"
)

const (
	defaultRequestTimeout = 5 * time.Second
	shutdownGrace         = 10 * time.Second
	maxRequestBody        = 1 << 20
)

// Server exposes the pipeline over HTTP:
//
//	POST /v1/predict  one prediction
//	GET  /healthz     store liveness
//	GET  /metrics     prometheus exposition
type Server struct {
	pipeline *Pipeline
	gatherer prometheus.Gatherer
	store    store.Store // nil disables the store health probe
	timeout  time.Duration
	log      *slog.Logger
}

// NewServer builds the HTTP front end. Timeout bounds one request end to
// end; zero means defaultRequestTimeout.
func NewServer(p *Pipeline, gatherer prometheus.Gatherer, st store.Store, timeout time.Duration, log *slog.Logger) *Server {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{pipeline: p, gatherer: gatherer, store: st, timeout: timeout, log: log}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	var req Request
	if err := dec.Decode(&req); err != nil {
		writeError(w, failf(KindInput, "decode request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp, err := s.pipeline.Predict(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded", "store": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Kind = Kind(err)
	body.Error.Message = err.Error()

	status := http.StatusInternalServerError
	switch body.Error.Kind {
	case KindInput:
		status = http.StatusBadRequest
	case KindStore:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relax3d/internal/pipeline"
	"relax3d/internal/runstore"
	"relax3d/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *pipeline.Controller implements it.
type Service interface {
	StartPreprocess(req pipeline.Request) (*pipeline.RunState, pipeline.Plan, error)
	StartRelax(opt pipeline.Option) (*pipeline.RunState, pipeline.Plan, error)
	Cancel() bool
	Status() types.StatusResponse
	History(ctx context.Context, limit int) ([]runstore.Record, error)
	Layers() []types.Layer
	Subscribe() (<-chan pipeline.Event, func())
	Ready() bool
}

// NewMux builds the router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	h := &handlers{svc: svc}
	r.Post("/runs/preprocess", h.preprocess)
	r.Post("/runs/relax", h.relax)
	r.Post("/runs/cancel", h.cancel)
	r.Get("/runs", h.runs)
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, svc.Status()) })
	r.Get("/layers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.LayersResponse{Layers: svc.Layers()})
	})
	r.Get("/events", h.events)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not configured"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response itself and reports whether decoding worked.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// preprocess godoc
//
//	@Summary	Start a preprocessing run
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.PreprocessRequest	true	"run request"
//	@Success	202		{object}	types.RunResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	409		{object}	types.ErrorResponse
//	@Router		/runs/preprocess [post]
func (h *handlers) preprocess(w http.ResponseWriter, r *http.Request) {
	var body types.PreprocessRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	opt, err := pipeline.ParseOption(body.Option)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := pipeline.ParseMode(body.Mode)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := pipeline.Request{File: strings.TrimSpace(body.File), Option: opt, Mode: mode}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, plan, err := h.svc.StartPreprocess(req)
	h.started(w, r, run, plan, err)
}

// relax godoc
//
//	@Summary	Start a relaxation run
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.RelaxRequest	true	"run request"
//	@Success	202		{object}	types.RunResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	409		{object}	types.ErrorResponse
//	@Router		/runs/relax [post]
func (h *handlers) relax(w http.ResponseWriter, r *http.Request) {
	var body types.RelaxRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	opt, err := pipeline.ParseOption(body.Option)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, plan, err := h.svc.StartRelax(opt)
	h.started(w, r, run, plan, err)
}

func (h *handlers) started(w http.ResponseWriter, r *http.Request, run *pipeline.RunState, plan pipeline.Plan, err error) {
	lvl := requestLogLevel(r)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusConflict {
			IncrementRejected("busy")
		} else if status == http.StatusBadRequest {
			IncrementRejected("invalid")
		}
		logRequest(r, lvl, status, "run rejected", err)
		writeJSONError(w, status, err.Error())
		return
	}
	logRequest(r, lvl, http.StatusAccepted, "run started "+run.ID, nil)
	writeJSON(w, http.StatusAccepted, types.RunResponse{
		ID:         run.ID,
		Pipeline:   string(plan.Kind),
		Stages:     plan.StageNames(),
		OutputFile: plan.OutputFile,
	})
}

// cancel godoc
//
//	@Summary	Request cancellation of the active run
//	@Produce	json
//	@Success	200	{object}	types.CancelResponse
//	@Router		/runs/cancel [post]
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	ok := h.svc.Cancel()
	logRequest(r, requestLogLevel(r), http.StatusOK, "cancel requested", nil)
	writeJSON(w, http.StatusOK, types.CancelResponse{Cancelled: ok})
}

// runs godoc
//
//	@Summary	List finished runs, newest first
//	@Produce	json
//	@Param		limit	query		int	false	"maximum number of runs"
//	@Success	200		{object}	types.RunsResponse
//	@Router		/runs [get]
func (h *handlers) runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := types.RunsResponse{Runs: make([]types.RunRecord, 0, len(recs))}
	for _, rec := range recs {
		out.Runs = append(out.Runs, rec.API())
	}
	writeJSON(w, http.StatusOK, out)
}

// events streams status events as NDJSON until the client goes away, the
// server shuts down or the subscription is closed.
//
//	@Summary	Stream status events (NDJSON)
//	@Produce	application/x-ndjson
//	@Router		/events [get]
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	ch, stop := h.svc.Subscribe()
	defer stop()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
		flush()
	}
	writer := io.Writer(w)
	lvl := requestLogLevel(r)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{})
	}
	start := time.Now()
	logRequest(r, lvl, http.StatusOK, "event stream opened", nil)

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	enc := json.NewEncoder(writer)
	for {
		select {
		case <-ctx.Done():
			logRequest(r, lvl, http.StatusOK, "event stream closed after "+time.Since(start).Round(time.Millisecond).String(), nil)
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			if flush != nil {
				flush()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Warn().Err(err).Msg("failed to encode response")
	}
}

// Package opsapi serves a read-only HTTP view of pipeline state: health,
// recent runs, staging counts and rejected rows.
package opsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

const maxLimit = 1000

// NewRouter builds the ops routes.
func NewRouter(store Store, allowedOrigins []string) http.Handler {
	h := &handler{store: store, log: zap.L().With(zap.String("component", "opsapi"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", h.runs)
		r.Route("/staging", func(r chi.Router) {
			r.Get("/", h.stagingStats)
			r.Get("/{subsidy}/rejects", h.rejects)
		})
	})
	return r
}

// Serve runs the router on port until ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) error {
	log := zap.L().With(zap.String("component", "opsapi"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ops server listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "opsapi: listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "opsapi: shutdown")
		}
		log.Info("ops server stopped")
		return nil
	}
}

type handler struct {
	store Store
	log   *zap.Logger
}

func (h *handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}
	entries, err := h.store.RecentRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": entries})
}

func (h *handler) stagingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.StagingStats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staging": stats})
}

func (h *handler) rejects(w http.ResponseWriter, r *http.Request) {
	subsidy, err := model.ParseSubsidyType(chi.URLParam(r, "subsidy"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown subsidy type"})
		return
	}
	limit, ok := parseLimit(w, r, 100)
	if !ok {
		return
	}
	rejects, err := h.store.Rejects(r.Context(), subsidy, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subsidy_type": subsidy,
		"rejects":      rejects,
		"histogram":    staging.ErrorHistogram(rejects),
	})
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	h.log.Error("ops request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 1 and %d", maxLimit)})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

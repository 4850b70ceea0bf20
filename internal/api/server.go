package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/board"
	"github.com/JakeFAU/timerboard/internal/config"
	"github.com/JakeFAU/timerboard/internal/display/sinks"
	"github.com/JakeFAU/timerboard/internal/metrics"
	"github.com/JakeFAU/timerboard/internal/timer"
)

// Server wires HTTP handlers to the board and the latest-state store.
type Server struct {
	router chi.Router
	board  *board.Board
	store  *sinks.StoreSink
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(b *board.Board, store *sinks.StoreSink, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		board:  b,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/timers", func(r chi.Router) {
			r.Post("/", s.createTimer)
			r.Get("/", s.listTimers)
			r.Route("/{timer_id}", func(r chi.Router) {
				r.Get("/", s.getTimer)
				r.Get("/state", s.getTimerState)
				r.Put("/window", s.replaceWindow)
				r.Delete("/", s.removeTimer)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// All dependencies are in-process; ready as soon as the board exists.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) createTimer(w http.ResponseWriter, r *http.Request) {
	var req createTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	window, err := timer.NewWindow(req.Start, req.End, req.OverdueAllowed)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	create := board.CreateRequest{Window: window, Name: req.Name}
	if req.CadenceSeconds != nil {
		if *req.CadenceSeconds <= 0 {
			writeError(w, http.StatusBadRequest, "cadence_seconds must be positive")
			return
		}
		cadence := time.Duration(*req.CadenceSeconds) * time.Second
		create.FixedCadence = &cadence
	}
	info, err := s.board.Create(create)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toTimerDTO(info))
}

func (s *Server) listTimers(w http.ResponseWriter, _ *http.Request) {
	infos := s.board.List()
	out := make([]timerDTO, 0, len(infos))
	for _, info := range infos {
		dto := toTimerDTO(info)
		if state, err := s.store.Latest(info.ID); err == nil {
			stateDTO := toStateDTO(state)
			dto.State = &stateDTO
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"timers": out})
}

func (s *Server) getTimer(w http.ResponseWriter, r *http.Request) {
	info, err := s.board.Get(chi.URLParam(r, "timer_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "timer not found")
		return
	}
	writeJSON(w, http.StatusOK, toTimerDTO(info))
}

func (s *Server) getTimerState(w http.ResponseWriter, r *http.Request) {
	state, err := s.board.Snapshot(chi.URLParam(r, "timer_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "timer not found")
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(state))
}

func (s *Server) replaceWindow(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	window, err := timer.NewWindow(req.Start, req.End, req.OverdueAllowed)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "timer_id")
	if err := s.board.SetWindow(id, window); err != nil {
		if errors.Is(err, board.ErrNotFound) {
			writeError(w, http.StatusNotFound, "timer not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"timer_id": id, "status": "window replaced"})
}

func (s *Server) removeTimer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "timer_id")
	if err := s.board.Remove(id); err != nil {
		writeError(w, http.StatusNotFound, "timer not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"timer_id": id, "status": "removed"})
}

type createTimerRequest struct {
	Name           string `json:"name"`
	Start          string `json:"start"`
	End            string `json:"end"`
	OverdueAllowed bool   `json:"overdue_allowed"`
	CadenceSeconds *int   `json:"cadence_seconds"`
}

type windowRequest struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	OverdueAllowed bool   `json:"overdue_allowed"`
}

type timerDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	Start          string    `json:"start"`
	End            string    `json:"end,omitempty"`
	OverdueAllowed bool      `json:"overdue_allowed"`
	Created        string    `json:"created"`
	State          *stateDTO `json:"state,omitempty"`
}

type stateDTO struct {
	TimerID         string  `json:"timer_id"`
	At              string  `json:"at"`
	Scenario        string  `json:"scenario"`
	ProgressPercent float64 `json:"progress_percent"`
	StatusLabel     string  `json:"status_label"`
	Label           string  `json:"label,omitempty"`
	Position        string  `json:"position"`
	HidePercentage  bool    `json:"hide_percentage"`
	Shimmer         bool    `json:"shimmer"`
	ColorTier       string  `json:"color_tier"`
}

func toTimerDTO(info board.Info) timerDTO {
	dto := timerDTO{
		ID:             info.ID,
		Name:           info.Name,
		Start:          info.Window.Start.Format(time.RFC3339),
		OverdueAllowed: info.Window.OverdueAllowed,
		Created:        info.Created.Format(time.RFC3339),
	}
	if info.Window.End != nil {
		dto.End = info.Window.End.Format(time.RFC3339)
	}
	return dto
}

func toStateDTO(state timer.DisplayState) stateDTO {
	return stateDTO{
		TimerID:         state.TimerID,
		At:              state.At.Format(time.RFC3339),
		Scenario:        string(state.Scenario),
		ProgressPercent: state.ProgressPercent,
		StatusLabel:     state.StatusLabel,
		Label:           state.Label,
		Position:        string(state.Position),
		HidePercentage:  state.HidePercentage,
		Shimmer:         state.Shimmer,
		ColorTier:       string(state.ColorTier),
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package server exposes the computed standings as JSON over HTTP.
//
// Every request triggers a fresh computation; nothing is cached between
// requests.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pable/squad-standings/internal/engine"
	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
	"github.com/pable/squad-standings/internal/standings"
)

const shutdownTimeout = 15 * time.Second

// Engine is the part of *engine.Engine the handlers use.
type Engine interface {
	Compute(ctx context.Context) (*engine.Result, error)
	Match(ctx context.Context, key model.MatchKey) (*engine.MatchView, error)
	LatestPlayed(ctx context.Context) (*engine.MatchView, error)
	Roster(ctx context.Context) (*roster.Index, error)
}

type Server struct {
	engine  Engine
	metrics *metrics.Metrics
	log     *logging.Logger
}

func New(eng Engine, m *metrics.Metrics, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{engine: eng, metrics: m, log: log}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(s.requestLogging)
	router.Use(chiMiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}

	router.Get("/standings", s.getStandings)
	router.Get("/players", s.getPlayers)
	router.Get("/highlights", s.getHighlights)
	router.Get("/teams", s.getTeams)
	router.Route("/matches", func(r chi.Router) {
		r.Get("/latest", s.getLatestMatch)
		r.Get("/{round}/{index}", s.getMatch)
	})
	return router
}

// requestLogging writes one access log line per request.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.InfoContext(r.Context(), "http request",
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down http server", "timeout", shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			return errors.Wrap(srv.Close(), "close server")
		}
		return nil
	})
	return g.Wait()
}

type standingsResponse struct {
	RunID   string               `json:"run_id"`
	Played  int                  `json:"played"`
	Teams   []model.TeamStanding `json:"teams"`
	Matches []model.MatchStatus  `json:"matches"`
}

func (s *Server) getStandings(w http.ResponseWriter, r *http.Request) {
	col, err := standings.ParseTeamColumn(r.URL.Query().Get("sort"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	desc, err := parseOrder(r.URL.Query().Get("order"), col.DefaultDesc())
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, ok := s.compute(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, standingsResponse{
		RunID:   res.RunID,
		Played:  res.Played(),
		Teams:   standings.SortTeams(res.Teams, col, desc),
		Matches: res.Matches,
	})
}

func (s *Server) getPlayers(w http.ResponseWriter, r *http.Request) {
	col, err := standings.ParsePlayerColumn(r.URL.Query().Get("sort"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	desc, err := parseOrder(r.URL.Query().Get("order"), col.DefaultDesc())
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, ok := s.compute(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, standings.SortPlayers(res.Players, col, desc))
}

func (s *Server) getHighlights(w http.ResponseWriter, r *http.Request) {
	res, ok := s.compute(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, res.Highlights)
}

func (s *Server) getTeams(w http.ResponseWriter, r *http.Request) {
	idx, err := s.engine.Roster(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	teams := idx.Filter(r.URL.Query().Get("search"))
	if teams == nil {
		teams = []model.Team{}
	}
	s.writeJSON(w, http.StatusOK, teams)
}

func (s *Server) getLatestMatch(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.LatestPlayed(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 1 {
		s.badRequest(w, errors.Newf("invalid match index %q", chi.URLParam(r, "index")))
		return
	}
	key := model.MatchKey{Round: chi.URLParam(r, "round"), Index: index}
	view, err := s.engine.Match(r.Context(), key)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) compute(w http.ResponseWriter, r *http.Request) (*engine.Result, bool) {
	res, err := s.engine.Compute(r.Context())
	if err != nil {
		s.failure(w, err)
		return nil, false
	}
	return res, true
}

func parseOrder(s string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, errors.Newf("invalid order %q: want asc or desc", s)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// failure maps engine errors to status codes.
func (s *Server) failure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownMatch), errors.Is(err, engine.ErrNothingPlayed):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, roster.ErrRosterLoad):
		s.log.Error("roster unavailable", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "roster unavailable"})
	case errors.Is(err, context.Canceled):
		w.WriteHeader(499)
	default:
		s.log.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "the server could not process the request"})
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.log.Error("encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

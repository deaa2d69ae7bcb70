// Package httpapi serves run history and shortlists over HTTP for the
// review dashboard, plus Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/db"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/globaltime"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/storage"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *db.Pool
	store  *storage.Store
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *db.Pool, store *storage.Store, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		store:  store,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("results server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("results server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.logger.Info()
			if v.Error != nil {
				evt = s.logger.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/runs", s.handleRuns)
	api.GET("/runs/:run_id/shortlist", s.handleRunShortlist)
	api.GET("/shortlist", s.handleLatestShortlist)
	api.POST("/labels", s.handleSaveLabel)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	dbState := "disabled"
	if s.pool != nil {
		dbState = "ok"
		if err := s.pool.Ping(c.Request().Context()); err != nil {
			dbState = "down"
		}
	}
	return success(c, map[string]any{
		"service":  "zpmon",
		"time":     globaltime.UTC(),
		"database": dbState,
	})
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRunsLimit, 1, maxRunsLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	runs, err := s.store.Runs(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs failed")
		return internalError(c, "Failed to load runs")
	}
	return success(c, map[string]any{
		"items": runs,
		"limit": limit,
	})
}

func (s *Server) handleRunShortlist(c echo.Context) error {
	runID := strings.TrimSpace(c.Param("run_id"))
	if runID == "" {
		return failValidation(c, map[string]string{"run_id": "is required"})
	}

	rows, err := s.store.Shortlist(c.Request().Context(), runID)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("load shortlist failed")
		return internalError(c, "Failed to load shortlist")
	}
	return success(c, map[string]any{
		"run_id": runID,
		"items":  rows,
	})
}

func (s *Server) handleLatestShortlist(c echo.Context) error {
	run, err := s.store.LatestRun(c.Request().Context())
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "No runs recorded yet")
		}
		s.logger.Error().Err(err).Msg("load latest run failed")
		return internalError(c, "Failed to load latest run")
	}

	rows, err := s.store.Shortlist(c.Request().Context(), run.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("load shortlist failed")
		return internalError(c, "Failed to load shortlist")
	}
	return success(c, map[string]any{
		"run":   run,
		"items": rows,
	})
}

type labelRequest struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

func (s *Server) handleSaveLabel(c echo.Context) error {
	var req labelRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be JSON with url and label"})
	}
	req.URL = strings.TrimSpace(req.URL)
	req.Label = strings.TrimSpace(req.Label)
	if req.URL == "" {
		return failValidation(c, map[string]string{"url": "is required"})
	}
	if req.Label == "" {
		return failValidation(c, map[string]string{"label": "is required"})
	}

	if err := s.store.SaveLabel(c.Request().Context(), req.URL, req.Label); err != nil {
		s.logger.Error().Err(err).Str("url", req.URL).Msg("save label failed")
		return internalError(c, "Failed to save label")
	}
	return success(c, map[string]any{
		"url":   req.URL,
		"label": req.Label,
	})
}

func parsePositiveInt(raw string, def, minVal, maxVal int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("must be an integer between %d and %d", minVal, maxVal)
	}
	return n, nil
}

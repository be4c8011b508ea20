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

	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
	"skywatch.earth/skywatch/internal/pipeline"
	"skywatch.earth/skywatch/internal/scoring"
)

const maxListLimit = 200

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Server struct {
	pool    *db.Pool
	service *pipeline.Service
	logger  zerolog.Logger
	opts    Options
}

func NewServer(pool *db.Pool, service *pipeline.Service, logger zerolog.Logger, opts Options) *Server {
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
	// Runs execute inside the request; the write timeout has to outlast a
	// full batch.
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		pool:    pool,
		service: service,
		logger:  logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  origins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil || s.service == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/check", s.handleCheck)
	api.GET("/runs", s.handleListRuns)
	api.POST("/runs/score-batch", s.handleRun(pipeline.RunKindScoreBatch))
	api.POST("/runs/rescore-all", s.handleRun(pipeline.RunKindRescoreAll))
	api.POST("/runs/score-all", s.handleRun(pipeline.RunKindScoreAll))
	api.POST("/runs/dedup-sweep", s.handleRun(pipeline.RunKindDedupSweep))
	api.GET("/candidates", s.handleListCandidates)
	api.POST("/candidates/:candidate_id/confirm", s.handleReview(pipeline.CandidateStatusConfirmed))
	api.POST("/candidates/:candidate_id/reject", s.handleReview(pipeline.CandidateStatusRejected))

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

	s.logger.Info().Str("addr", addr).Msg("skywatch admin server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("skywatch admin server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
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
	return success(c, map[string]any{
		"service":        "skywatch",
		"scorer_version": scoring.Version,
		"time":           globaltime.UTC(),
	})
}

func (s *Server) handleCheck(c echo.Context) error {
	report, err := s.service.Check(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("check failed")
		return internalError(c, "Check failed")
	}
	return success(c, report)
}

type runRequest struct {
	Limit   int `json:"limit"`
	Workers int `json:"workers"`
}

// handleRun executes one pipeline operation synchronously and returns its
// summary. A client disconnect cancels the run through the request context.
func (s *Server) handleRun(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req runRequest
		if c.Request().ContentLength > 0 {
			if err := c.Bind(&req); err != nil {
				return fail(c, http.StatusBadRequest, "Invalid request body", nil)
			}
		}
		if req.Limit < 0 || req.Workers < 0 {
			return fail(c, http.StatusBadRequest, "limit and workers must be non-negative", nil)
		}

		ctx := c.Request().Context()
		var summary pipeline.Summary
		var err error
		switch kind {
		case pipeline.RunKindScoreBatch:
			summary, err = s.service.ScoreBatch(ctx, pipeline.ScoreOptions{Limit: req.Limit, Workers: req.Workers})
		case pipeline.RunKindRescoreAll:
			summary, err = s.service.RescoreAll(ctx, pipeline.ScoreOptions{Limit: req.Limit, Workers: req.Workers})
		case pipeline.RunKindScoreAll:
			summary, err = s.service.ScoreAll(ctx, pipeline.ScoreOptions{Limit: req.Limit, Workers: req.Workers})
		case pipeline.RunKindDedupSweep:
			summary, err = s.service.DedupSweep(ctx, pipeline.DedupOptions{Workers: req.Workers})
		default:
			return failNotFound(c, "Unknown run kind")
		}
		if err != nil {
			s.logger.Error().Err(err).Str("kind", kind).Msg("run failed")
			return fail(c, http.StatusInternalServerError, "Run failed", summary)
		}
		return successWithStatus(c, http.StatusCreated, summary)
	}
}

func (s *Server) handleListRuns(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"))
	runs, err := s.service.ListRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs failed")
		return internalError(c, "Failed to load runs")
	}
	return success(c, map[string]any{"runs": runs})
}

func (s *Server) handleListCandidates(c echo.Context) error {
	status := strings.TrimSpace(c.QueryParam("status"))
	switch status {
	case "", pipeline.CandidateStatusPending, pipeline.CandidateStatusConfirmed, pipeline.CandidateStatusRejected:
	default:
		return fail(c, http.StatusBadRequest, "Invalid status filter", nil)
	}

	limit := parseLimit(c.QueryParam("limit"))
	candidates, err := s.service.ListCandidates(c.Request().Context(), status, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list candidates failed")
		return internalError(c, "Failed to load candidates")
	}
	return success(c, map[string]any{"candidates": candidates})
}

type reviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
}

func (s *Server) handleReview(status string) echo.HandlerFunc {
	return func(c echo.Context) error {
		candidateID, err := strconv.ParseInt(c.Param("candidate_id"), 10, 64)
		if err != nil || candidateID <= 0 {
			return fail(c, http.StatusBadRequest, "Invalid candidate id", nil)
		}

		var req reviewRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "Invalid request body", nil)
		}
		reviewedBy := strings.TrimSpace(req.ReviewedBy)
		if reviewedBy == "" {
			return fail(c, http.StatusBadRequest, "reviewed_by is required", nil)
		}

		updated, err := s.service.ReviewCandidate(c.Request().Context(), candidateID, status, reviewedBy)
		if err != nil {
			s.logger.Error().Err(err).Int64("candidate_id", candidateID).Msg("review candidate failed")
			return internalError(c, "Failed to review candidate")
		}
		if !updated {
			return failNotFound(c, "Candidate not found or already reviewed")
		}
		return success(c, map[string]any{
			"candidate_id": candidateID,
			"status":       status,
			"reviewed_by":  reviewedBy,
		})
	}
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

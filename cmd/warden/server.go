package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/chatwarden/warden/actorstore"
	"github.com/chatwarden/warden/engine"
	"github.com/chatwarden/warden/platform"
	"github.com/chatwarden/warden/policy"
	"github.com/chatwarden/warden/reviewstore"
)

type Server struct {
	echo       *echo.Echo
	httpd      *http.Server
	logger     *slog.Logger
	engine     *engine.Engine
	sweeper    *engine.Sweeper
	policyPath string
	sweepEvery time.Duration
}

type Config struct {
	Logger          *slog.Logger
	PolicyPath      string
	Bind            string
	PlatformHost    string
	PlatformToken   string
	RedisURL        string
	SlackWebhookURL string
	AdminToken      string
	SweepInterval   time.Duration
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := policy.LoadConfigFile(config.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("loading initial policy: %w", err)
	}

	var warnings actorstore.WarningStore
	var reviews reviewstore.ReviewStore
	if config.RedisURL != "" {
		ws, err := actorstore.NewRedisWarningStore(config.RedisURL, cfg.WarningRetention())
		if err != nil {
			return nil, fmt.Errorf("initializing redis warning store: %w", err)
		}
		warnings = ws

		rs, err := reviewstore.NewRedisReviewStore(config.RedisURL, cfg.WarningRetention())
		if err != nil {
			return nil, fmt.Errorf("initializing redis review store: %w", err)
		}
		reviews = rs
		logger.Info("using redis-backed stores", "url", config.RedisURL)
	} else {
		warnings = actorstore.NewMemWarningStore()
		reviews = reviewstore.NewMemReviewStore()
		logger.Info("using in-process stores; state resets on restart")
	}

	client := platform.NewHTTPClient(config.PlatformHost, config.PlatformToken)
	eng := engine.NewEngine(logger, cfg, warnings, reviews, client)
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack operator alerts")
		eng.Notifier = &engine.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("warden"))
	e.Use(middleware.BodyLimit("1M"))

	s := &Server{
		echo:       e,
		logger:     logger,
		engine:     eng,
		policyPath: config.PolicyPath,
		sweepEvery: config.SweepInterval,
	}
	s.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	e.GET("/_health", s.HandleHealthCheck)

	e.POST("/event/message", s.HandleMessageEvent)
	e.POST("/event/join", s.HandleJoinEvent)
	e.POST("/event/reaction", s.HandleReactionEvent)

	admin := e.Group("/admin", adminAuth(config.AdminToken))
	admin.POST("/policy/reload", s.HandlePolicyReload)
	admin.GET("/stats", s.HandleStats)
	admin.GET("/reviews", s.HandleReviewList)
	admin.POST("/reviews/:id/resolve", s.HandleReviewResolve)
	admin.GET("/actors/:id/warnings", s.HandleActorWarnings)
	admin.POST("/actors/:id/reset", s.HandleActorReset)
	admin.POST("/analyze", s.HandleAnalyze)

	return s, nil
}

// Bearer auth for the admin surface. An empty configured token disables the
// whole group rather than leaving it open.
func adminAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			if token == "" {
				return false, nil
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
	})
}

func (s *Server) Run(ctx context.Context) error {
	s.sweeper = s.engine.StartSweeper(ctx, s.sweepEvery)
	s.logger.Info("warden listening", "bind", s.httpd.Addr)
	if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.sweeper != nil {
		if err := s.sweeper.Shutdown(ctx); err != nil {
			s.logger.Error("sweeper shutdown failed", "err", err)
		}
	}
	return s.httpd.Shutdown(ctx)
}

func (s *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type actorBody struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Roles            []string   `json:"roles"`
	Admin            bool       `json:"admin"`
	AccountCreatedAt *time.Time `json:"account_created_at"`
	JoinedAt         *time.Time `json:"joined_at"`
}

func (a *actorBody) toActor() platform.Actor {
	return platform.Actor{
		ID:               a.ID,
		Username:         a.Username,
		Roles:            a.Roles,
		Admin:            a.Admin,
		AccountCreatedAt: a.AccountCreatedAt,
		JoinedAt:         a.JoinedAt,
	}
}

type messageEventBody struct {
	ID           string    `json:"id"`
	CommunityID  string    `json:"community_id"`
	ChannelID    string    `json:"channel_id"`
	Content      string    `json:"content"`
	MentionCount int       `json:"mention_count"`
	Actor        actorBody `json:"actor"`
}

func (s *Server) HandleMessageEvent(c echo.Context) error {
	var body messageEventBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	if body.ID == "" || body.Actor.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message id and actor id are required")
	}
	err := s.engine.ProcessMessage(c.Request().Context(), platform.Message{
		ID:           body.ID,
		CommunityID:  body.CommunityID,
		ChannelID:    body.ChannelID,
		Content:      body.Content,
		MentionCount: body.MentionCount,
		Actor:        body.Actor.toActor(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}
	return c.JSON(http.StatusOK, map[string]bool{"processed": true})
}

type joinEventBody struct {
	CommunityID string    `json:"community_id"`
	Actor       actorBody `json:"actor"`
}

func (s *Server) HandleJoinEvent(c echo.Context) error {
	var body joinEventBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	if body.CommunityID == "" || body.Actor.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "community id and actor id are required")
	}
	err := s.engine.ProcessJoin(c.Request().Context(), platform.JoinEvent{
		CommunityID: body.CommunityID,
		Actor:       body.Actor.toActor(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}
	return c.JSON(http.StatusOK, map[string]bool{"processed": true})
}

type reactionEventBody struct {
	CommunityID string    `json:"community_id"`
	ChannelID   string    `json:"channel_id"`
	Actor       actorBody `json:"actor"`
}

func (s *Server) HandleReactionEvent(c echo.Context) error {
	var body reactionEventBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	if body.Actor.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor id is required")
	}
	err := s.engine.ProcessReaction(c.Request().Context(), platform.ReactionEvent{
		CommunityID: body.CommunityID,
		ChannelID:   body.ChannelID,
		Actor:       body.Actor.toActor(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}
	return c.JSON(http.StatusOK, map[string]bool{"processed": true})
}

func (s *Server) HandlePolicyReload(c echo.Context) error {
	if err := s.engine.LoadPolicyFile(s.policyPath); err != nil {
		s.logger.Error("policy reload failed, previous policy stays active", "err", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	snap := s.engine.PolicySnapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"version":  snap.Config.Version,
		"patterns": snap.Rules.PatternCount(),
	})
}

func (s *Server) HandleStats(c echo.Context) error {
	st, err := s.engine.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) HandleReviewList(c echo.Context) error {
	items, err := s.engine.Reviews.Pending(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type resolveBody struct {
	Status     string `json:"status"`
	ReviewerID string `json:"reviewer_id"`
}

func (s *Server) HandleReviewResolve(c echo.Context) error {
	var body resolveBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if body.Status != reviewstore.StatusApproved && body.Status != reviewstore.StatusRejected {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be approved or rejected")
	}
	item, err := s.engine.Reviews.Resolve(c.Request().Context(), c.Param("id"), body.Status, body.ReviewerID)
	if errors.Is(err, reviewstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such review item")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) HandleActorWarnings(c echo.Context) error {
	ws, err := s.engine.Warnings.List(c.Request().Context(), c.Param("id"), time.Time{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"warnings": ws, "count": len(ws)})
}

func (s *Server) HandleActorReset(c echo.Context) error {
	removed, err := s.engine.ResetActor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

type analyzeBody struct {
	Content string `json:"content"`
}

// Dry-run scoring for operators tuning the policy. Nothing is recorded and
// nothing executes.
func (s *Server) HandleAnalyze(c echo.Context) error {
	var body analyzeBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	score, tags := engine.AnalyzeText(body.Content, s.engine.PolicySnapshot())
	return c.JSON(http.StatusOK, map[string]any{"score": score, "tags": tags})
}

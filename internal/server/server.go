// Package server exposes the aggregation layer over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/feed"
	"github.com/barissdev/polylook/internal/markets"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/reconcile"
	"github.com/barissdev/polylook/internal/wallet"
	"github.com/barissdev/polylook/internal/whales"
)

// Server wires the aggregation services to HTTP routes.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	data       *dataapi.Client
	reconciler *reconcile.Reconciler
	feed       *feed.Aggregator
	detector   *whales.Detector
	markets    *markets.Service
	engine     *gin.Engine
}

// New creates the HTTP server and registers all routes.
func New(
	cfg *config.Config,
	log *logrus.Logger,
	data *dataapi.Client,
	reconciler *reconcile.Reconciler,
	feedAgg *feed.Aggregator,
	detector *whales.Detector,
	marketsSvc *markets.Service,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:        cfg,
		log:        log,
		data:       data,
		reconciler: reconciler,
		feed:       feedAgg,
		detector:   detector,
		markets:    marketsSvc,
	}

	registerValidations()

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", s.handleHealth)
	engine.GET("/ready", s.handleHealth)

	api := engine.Group("/api")
	{
		api.GET("/wallet", s.handleWallet)
		api.POST("/pnl-card", s.handlePnlCard)
		api.POST("/wallet-feed", s.handleWalletFeed)
		api.GET("/whales", s.handleWhales)
		api.POST("/leaderboard", s.handleLeaderboard)
		api.GET("/new-markets", s.handleNewMarkets)
		api.GET("/confidence", s.handleConfidence)
	}

	s.engine = engine
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(s.cfg.APIPort),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.APIPort).Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// registerValidations installs the polyaddr rule on gin's validator engine.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("polyaddr", func(fl validator.FieldLevel) bool {
			_, err := wallet.Normalize(fl.Field().String())
			return err == nil
		})
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request handled")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleWallet(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query param required"})
		return
	}

	summary, err := s.reconciler.QuickSummarize(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address format (expected 0x + 40 hex chars)"})
			return
		}
		s.log.WithError(err).Error("Quick wallet summary failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch wallet summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type pnlCardRequest struct {
	Address string `json:"address" binding:"required,polyaddr"`
	Days    int    `json:"days"`
}

func (s *Server) handlePnlCard(c *gin.Context) {
	var req pnlCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required and must be 0x + 40 hex chars"})
		return
	}

	summary, err := s.reconciler.Summarize(c.Request.Context(), req.Address, req.Days)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address format (expected 0x + 40 hex chars)"})
			return
		}
		s.log.WithError(err).Error("Wallet summary failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to build wallet summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type walletFeedRequest struct {
	Wallets         []feed.TrackedWallet `json:"wallets" binding:"required"`
	LookbackMinutes int                  `json:"lookbackMinutes"`
}

func (s *Server) handleWalletFeed(c *gin.Context) {
	var req walletFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallets array required"})
		return
	}

	entries := s.feed.Build(c.Request.Context(), req.Wallets, req.LookbackMinutes)
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleWhales(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	report, err := s.detector.Detect(c.Request.Context(), threshold, limit)
	if err != nil {
		s.log.WithError(err).Error("Whale scan failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch trades"})
		return
	}
	c.JSON(http.StatusOK, report)
}

type leaderboardRequest struct {
	TimePeriod string `json:"timePeriod"`
	Metric     string `json:"metric"`
	Limit      int    `json:"limit"`
}

type leaderboardEntry struct {
	Rank      int     `json:"rank"`
	Address   string  `json:"address"`
	Name      string  `json:"name"`
	PnlUsd    float64 `json:"pnlUsd"`
	VolumeUsd float64 `json:"volumeUsd"`
}

// Request-side time tabs map to the upstream's period names.
var timePeriods = map[string]string{
	"TODAY":   "DAY",
	"WEEKLY":  "WEEK",
	"MONTHLY": "MONTH",
	"ALL":     "ALL",
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	var req leaderboardRequest
	_ = c.ShouldBindJSON(&req)

	period, ok := timePeriods[req.TimePeriod]
	if !ok {
		period = "ALL"
	}

	orderBy := "PNL"
	if req.Metric == "VOLUME" {
		orderBy = "VOL"
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	rows, err := s.data.GetLeaderboard(c.Request.Context(), dataapi.LeaderboardParams{
		TimePeriod: period,
		OrderBy:    orderBy,
		Limit:      limit,
	})
	if err != nil {
		s.log.WithError(err).Error("Leaderboard fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load leaderboard"})
		return
	}

	entries := make([]leaderboardEntry, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.UserName)
		if name == "" {
			name = wallet.Shorten(row.ProxyWallet)
		}

		pnl := 0.0
		if row.Pnl != nil {
			pnl = row.Pnl.Float()
		}

		entries[i] = leaderboardEntry{
			Rank:      i + 1,
			Address:   row.ProxyWallet,
			Name:      name,
			PnlUsd:    pnl,
			VolumeUsd: row.Vol.Float(),
		}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleNewMarkets(c *gin.Context) {
	recent, err := s.markets.Recent(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("New markets fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load new markets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": recent})
}

func (s *Server) handleConfidence(c *gin.Context) {
	scored, err := s.markets.Scored(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Confidence scan failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to score markets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": scored})
}

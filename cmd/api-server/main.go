package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"titletrack/internal/auth"
	"titletrack/internal/library"
	"titletrack/internal/refresh"
	"titletrack/internal/scraper"
	synchub "titletrack/internal/sync"
	"titletrack/internal/titles"
	"titletrack/pkg/config"
	"titletrack/pkg/database"
	"titletrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg = database.ConfigFor(cfg.DBPath)
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.FrontendURL}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsCfg.ExposeHeaders = []string{"Content-Length"}
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	tokens := auth.TokenService{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.JWTIssuer,
	}

	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub, tokens))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
			"ws_users":   stats.Users,
		})
	})

	// Resolve and discovery (public)
	resolver := scraper.NewDefaultResolver(cfg.Sources, nil)
	var discoverer titles.Discoverer
	if al := resolver.Discovery(); al != nil {
		discoverer = al
	}
	titles.NewHandler(resolver, discoverer).RegisterRoutes(router)

	libRepo := library.NewRepo(db)
	refresher := refresh.NewService(libRepo, resolver, hub, cfg.Refresh.Timeout())

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokens))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	library.NewHandler(libRepo, hub, refresher).RegisterRoutes(protected)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := refresh.NewScheduler(libRepo, refresher, cfg.Refresh.Interval(), cfg.Refresh.Concurrency)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start refresh scheduler")
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.BroadcastJSON(gin.H{"type": "server.shutdown"})

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	_ = sched.Stop(shutdownCtx)

	done := make(chan struct{})
	go func() {
		refresher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("pending refreshes abandoned")
	}

	log.Info().Msg("server stopped")
}

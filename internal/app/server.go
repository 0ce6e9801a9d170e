// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auth_portal/internal/config"
	"auth_portal/internal/jobs"
	"auth_portal/internal/middleware"
	"auth_portal/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	webHandler *web.Handler

	// Jobs
	backendProbeJob *jobs.BackendProbeJob
}

// NewServer creates a new instance of the portal server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessions middleware.SessionChecker,
	webHandler *web.Handler,
	backendProbeJob *jobs.BackendProbeJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())
	router.HandleMethodNotAllowed = true

	router.SetHTMLTemplate(web.Templates())

	guard := middleware.RequireSession(sessions, cfg.LoginRoute, logger.Named("RouteGuard"))
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst, logger.Named("RateLimit"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Auth portal is healthy!"})
	})

	webHandler.RegisterRoutes(router, guard, limiter.Middleware)

	// CORS only on the JSON API; the HTML views are same-origin.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	api := router.Group("/api", cors.New(corsConfig))
	webHandler.RegisterAPIRoutes(api)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		router:          router,
		cfg:             cfg,
		logger:          logger,
		webHandler:      webHandler,
		backendProbeJob: backendProbeJob,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.backendProbeJob != nil {
		if err := s.backendProbeJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start backend probe job", zap.Error(err))
		}
	} else {
		s.logger.Info("Backend probe job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
		zap.String("backend", s.cfg.BackendAPIURL),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.backendProbeJob != nil {
		s.backendProbeJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/logging"
	"github.com/ppiankov/controlgap/internal/model"
	"github.com/ppiankov/controlgap/internal/worker"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown
const shutdownTimeout = 5 * time.Second

// SetupRouter wires middleware and routes
func SetupRouter(service Service, cfg model.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	if cfg.RequestsPerSecond > 0 {
		limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
		api.Use(RateLimiter(limiter, cfg.RequestsPerSecond, cfg.Burst))
	}
	NewController(service).RegisterRoutes(api)

	return router
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully
func Serve(ctx context.Context, service Service, cfg model.ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRouter(service, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Starting server", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info("Server exiting")
	return nil
}

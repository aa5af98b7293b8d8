// api/router.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the read-only model endpoints and the reload hook.
func NewRouter(storage *Storage) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(storage.Options.Logger))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(storage))
		apiGroup.GET("/meta/:entity", MetaEntityHandler(storage))
		apiGroup.GET("/meta/:entity/join/:field", JoinTableHandler(storage))
		apiGroup.GET("/catalogs/:name", MetaCatalogHandler(storage))

		apiGroup.GET("/ddl", DDLHandler(storage))
		apiGroup.GET("/plan", PlanHandler(storage))
		apiGroup.GET("/lint", LintHandler(storage))

		apiGroup.POST("/reload", AdminReloadHandler(storage))
	}
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// RunServer serves the router on addr until ctx is cancelled.
func RunServer(ctx context.Context, addr string, storage *Storage) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(storage),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		storage.Options.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/assistant-provisioner/api/handlers"
	"github.com/feichai0017/assistant-provisioner/api/routes"
	"github.com/feichai0017/assistant-provisioner/config"
	"github.com/feichai0017/assistant-provisioner/internal/app"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	// init logger
	outputs := []string{"stdout"}
	if cfg.Log.File != "" {
		outputs = append(outputs, cfg.Log.File)
	}
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(outputs),
		logger.WithInitialFields(map[string]interface{}{"service": "server"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Assistant.APIKey == "" || cfg.Assistant.Name == "" {
		log.Warn("PINECONE_API_KEY or PINECONE_ASSISTANT_NAME is not set; provisioning requests will be rejected")
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", logger.Error(err))
	}
	defer a.Close()

	h := handlers.NewHandlers(a.Provision, a.Chat, log)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, cfg.Server.AllowOrigins, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting",
			logger.String("addr", cfg.Server.Addr),
			logger.String("assistant", cfg.Assistant.Name),
			logger.String("queue", cfg.Queue.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	webAdapter "github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/adapters/web"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer pool.Close()

	disp := core.NewDispatcher(pool, logger, core.DispatcherOptions{
		AcquireTimeout:         cfg.Database.AcquireTimeout,
		ClientPaymentTermsDays: cfg.ClientPaymentTermsDays,
	})
	reports := core.NewReportingService(pool, disp)

	var agent ai.AgentService
	if cfg.OpenAIAPIKey != "" {
		agent = ai.NewAgent(cfg.OpenAIAPIKey)
	} else {
		logger.Warn("OPENAI_API_KEY is not set; /api/chat is disabled")
	}

	svc := app.NewAppService(disp, reports, agent)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.ServerPort, "today": disp.Today().Format("2006-01-02")}).
			Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

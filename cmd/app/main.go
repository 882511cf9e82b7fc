package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/adapters/cli"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/adapters/repl"
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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	disp := core.NewDispatcher(pool, logger, core.DispatcherOptions{
		AcquireTimeout:         cfg.Database.AcquireTimeout,
		ClientPaymentTermsDays: cfg.ClientPaymentTermsDays,
	})
	svc := app.NewAppService(disp, core.NewReportingService(pool, disp), newAgent(cfg, logger))

	if len(os.Args) > 1 {
		cli.Run(ctx, svc, os.Args[1:])
		return
	}
	repl.Run(ctx, svc, bufio.NewReader(os.Stdin))
}

// newAgent returns nil when no API key is configured; AI commands then
// report the agent as unavailable.
func newAgent(cfg *config.Config, logger *logrus.Logger) ai.AgentService {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; AI actions are disabled")
		return nil
	}
	return ai.NewAgent(cfg.OpenAIAPIKey)
}

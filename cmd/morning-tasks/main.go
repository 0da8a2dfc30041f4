// Command morning-tasks posts the daily round announcement to the group.
// It is intended to be invoked by an external cron job each morning.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/chat"
	"github.com/heartmarshall/sprachduell-bot/internal/app"
	"github.com/heartmarshall/sprachduell-bot/internal/config"
	"github.com/heartmarshall/sprachduell-bot/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sink := chat.NewSink(cfg.Chat, logger)

	// The broadcast needs no database access; the reporter's other
	// collaborators stay nil.
	reporter := report.New(logger, nil, nil, nil, nil, nil, nil, sink, cfg.Scoring.RetentionDays)

	if err := reporter.MorningBroadcast(ctx); err != nil {
		logger.Error("morning broadcast failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("morning broadcast sent")
}

// Command daily-summary closes the current day: it finalizes any sessions
// still open, then posts the day's leaderboard and the inactive list to the
// group. It is intended to be invoked by an external cron job each evening.
//
// Flags:
//
//	--snapshot  post the intermediate standings without closing the day
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/adapter/chat"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/assignment"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/message"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/session"
	"github.com/heartmarshall/sprachduell-bot/internal/adapter/postgres/submission"
	"github.com/heartmarshall/sprachduell-bot/internal/app"
	"github.com/heartmarshall/sprachduell-bot/internal/config"
	"github.com/heartmarshall/sprachduell-bot/internal/domain"
	"github.com/heartmarshall/sprachduell-bot/internal/report"
	scoringsvc "github.com/heartmarshall/sprachduell-bot/internal/service/scoring"
	sessionsvc "github.com/heartmarshall/sprachduell-bot/internal/service/session"
)

func main() {
	snapshotFlag := flag.Bool("snapshot", false, "post intermediate standings without closing the day")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	assignmentRepo := assignment.New(pool)
	sessionRepo := session.New(pool)
	submissionRepo := submission.New(pool)
	messageRepo := message.New(pool)

	weights := domain.ScoringWeights{
		MissedSentencePenalty: cfg.Scoring.MissedSentencePenalty,
		TimeWeight:            cfg.Scoring.TimeWeight,
	}

	sessions := sessionsvc.NewService(logger, sessionRepo, assignmentRepo, submissionRepo, cfg.Scoring.MissedSentencePenalty)
	scoring := scoringsvc.NewService(logger, submissionRepo, sessionRepo, assignmentRepo, messageRepo, weights)

	sink := chat.NewSink(cfg.Chat, logger)
	reporter := report.New(logger, scoring, sessions,
		submissionRepo, sessionRepo, assignmentRepo, messageRepo,
		sink, cfg.Scoring.RetentionDays)

	if *snapshotFlag {
		if err := reporter.ProgressSnapshot(ctx, time.Now()); err != nil {
			logger.Error("progress snapshot failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("progress snapshot sent")
		return
	}

	if err := reporter.DailySummary(ctx, time.Now()); err != nil {
		logger.Error("daily summary failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("daily summary sent")
}

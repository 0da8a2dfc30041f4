package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
	"github.com/heartmarshall/sprachduell-bot/internal/service/admin"
	"github.com/heartmarshall/sprachduell-bot/internal/service/submission"
	"github.com/heartmarshall/sprachduell-bot/pkg/ctxutil"
)

type poolService interface {
	Batch(ctx context.Context, n int) ([]string, error)
	Replace(ctx context.Context, texts []string) (int, error)
}

type allocatorService interface {
	AllocateBatch(ctx context.Context, userID int64, day time.Time, texts []string) ([]domain.Assignment, error)
}

type sessionService interface {
	StartSession(ctx context.Context, userID int64, username string) (*domain.PracticeSession, error)
	ExtendSession(ctx context.Context, userID int64, username string) (*domain.PracticeSession, error)
	RequestFinish(ctx context.Context, userID int64) (domain.FinishPreview, error)
	ConfirmFinish(ctx context.Context, userID int64) (domain.FinishResult, error)
	CancelSession(ctx context.Context, userID int64) error
}

type submissionService interface {
	Submit(ctx context.Context, userID int64, username string, entries []submission.Entry) ([]submission.Result, error)
}

type scoringService interface {
	UserStats(ctx context.Context, userID int64, from, to time.Time, policy domain.MinutesPolicy) (domain.UserStats, error)
}

type adminService interface {
	ResetUser(ctx context.Context, userID int64, day time.Time) (admin.ResetCounts, error)
}

type messageLog interface {
	Log(ctx context.Context, userID int64, username, text string) error
}

// Router dispatches chat commands to the engine services.
type Router struct {
	pool        poolService
	allocator   allocatorService
	sessions    sessionService
	submissions submissionService
	scoring     scoringService
	admin       adminService
	messages    messageLog

	adminUserID int64
	batchSize   int
	callTimeout time.Duration
	log         *slog.Logger
}

// NewRouter creates a new command router.
func NewRouter(
	log *slog.Logger,
	pool poolService,
	allocator allocatorService,
	sessions sessionService,
	submissions submissionService,
	scoring scoringService,
	adm adminService,
	messages messageLog,
	adminUserID int64,
	batchSize int,
	callTimeout time.Duration,
) *Router {
	return &Router{
		pool:        pool,
		allocator:   allocator,
		sessions:    sessions,
		submissions: submissions,
		scoring:     scoring,
		admin:       adm,
		messages:    messages,
		adminUserID: adminUserID,
		batchSize:   batchSize,
		callTimeout: callTimeout,
		log:         log.With("component", "router"),
	}
}

// Handle processes one incoming message and returns the reply text
// (empty string means no reply). Engine errors come back as corrective
// messages; only infrastructure failures surface as errors.
func (r *Router) Handle(ctx context.Context, msg Message) (string, error) {
	cmd, body := splitCommand(msg.Text)

	// /translate runs the grader, whose retry ladder can legitimately take
	// far longer than a database round trip; its store calls carry their own
	// per-call timeouts inside the submission service. Everything else is
	// bounded here.
	if cmd != "/translate" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	switch cmd {
	case "/go":
		return r.handleStart(ctx, msg)
	case "/more":
		return r.handleMore(ctx, msg)
	case "/done":
		return r.handleDone(ctx, msg)
	case "/confirm":
		return r.handleConfirm(ctx, msg)
	case "/translate":
		return r.handleTranslate(ctx, msg, body)
	case "/stats":
		return r.handleStats(ctx, msg)
	case "/newtasks":
		return r.handleNewTasks(ctx, msg, body)
	case "/reset":
		return r.handleReset(ctx, msg, body)
	default:
		// Plain chat text feeds the inactivity log and gets no reply.
		if err := r.messages.Log(ctx, msg.UserID, msg.Username, msg.Text); err != nil {
			r.log.ErrorContext(ctx, "message log failed",
				slog.Int64("update_id", ctxutil.UpdateIDFromCtx(ctx)),
				slog.String("error", err.Error()),
			)
		}
		return "", nil
	}
}

func (r *Router) handleStart(ctx context.Context, msg Message) (string, error) {
	if _, err := r.sessions.StartSession(ctx, msg.UserID, msg.Username); err != nil {
		if errors.Is(err, domain.ErrSessionActive) {
			return "You already have a round in progress. Finish it with /done first.", nil
		}
		return "", fmt.Errorf("start session: %w", err)
	}

	return r.allocateOrRollBack(ctx, msg)
}

func (r *Router) handleMore(ctx context.Context, msg Message) (string, error) {
	if _, err := r.sessions.ExtendSession(ctx, msg.UserID, msg.Username); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionActive):
			return "Your current round is still open. Finish it with /done before asking for more.", nil
		case errors.Is(err, domain.ErrNotFound):
			return "You have no rounds yet today. Start with /go.", nil
		}
		return "", fmt.Errorf("extend session: %w", err)
	}

	return r.allocateOrRollBack(ctx, msg)
}

// allocateOrRollBack hands out a sentence batch for the session just opened.
// On failure the session is discarded again, so a retried /go or /more is not
// refused with "round in progress" over sentences that were never delivered.
func (r *Router) allocateOrRollBack(ctx context.Context, msg Message) (string, error) {
	reply, err := r.allocateAndFormat(ctx, msg)
	if err == nil {
		return reply, nil
	}

	if cErr := r.sessions.CancelSession(ctx, msg.UserID); cErr != nil {
		r.log.ErrorContext(ctx, "session rollback failed",
			slog.Int64("user_id", msg.UserID),
			slog.String("error", cErr.Error()),
		)
	}

	return "", err
}

func (r *Router) allocateAndFormat(ctx context.Context, msg Message) (string, error) {
	texts, err := r.pool.Batch(ctx, r.batchSize)
	if err != nil {
		return "", fmt.Errorf("sentence batch: %w", err)
	}

	assignments, err := r.allocator.AllocateBatch(ctx, msg.UserID, time.Now(), texts)
	if err != nil {
		return "", fmt.Errorf("allocate batch: %w", err)
	}

	return formatBatch(assignments), nil
}

func (r *Router) handleDone(ctx context.Context, msg Message) (string, error) {
	preview, err := r.sessions.RequestFinish(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return "No open round. Start one with /go.", nil
		}
		return "", fmt.Errorf("request finish: %w", err)
	}

	return fmt.Sprintf("You translated %d of %d sentences today. Send /confirm to finish the round.",
		preview.TranslatedCount, preview.TotalCount), nil
}

func (r *Router) handleConfirm(ctx context.Context, msg Message) (string, error) {
	result, err := r.sessions.ConfirmFinish(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return "No open round to finish. Start one with /go.", nil
		}
		return "", fmt.Errorf("confirm finish: %w", err)
	}

	return formatFinish(result), nil
}

func (r *Router) handleTranslate(ctx context.Context, msg Message, body string) (string, error) {
	entries, err := submission.ParseEntries(body)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return "Format: /translate <number>. <translation> — one sentence per line.", nil
		}
		return "", fmt.Errorf("parse entries: %w", err)
	}

	results, err := r.submissions.Submit(ctx, msg.UserID, msg.Username, entries)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	return formatResults(msg.Username, results), nil
}

func (r *Router) handleStats(ctx context.Context, msg Message) (string, error) {
	now := time.Now()
	today := domain.Day(now)

	// Per-session pace uses the average policy; the weekly view below reads
	// its sum aggregate for total time.
	dayStats, err := r.scoring.UserStats(ctx, msg.UserID, today, today.AddDate(0, 0, 1), domain.MinutesAvg)
	if err != nil {
		return "", fmt.Errorf("day stats: %w", err)
	}

	weekStats, err := r.scoring.UserStats(ctx, msg.UserID, today.AddDate(0, 0, -6), today.AddDate(0, 0, 1), domain.MinutesAvg)
	if err != nil {
		return "", fmt.Errorf("week stats: %w", err)
	}

	return formatStats(msg.Username, dayStats, weekStats), nil
}

func (r *Router) handleNewTasks(ctx context.Context, msg Message, body string) (string, error) {
	if msg.UserID != r.adminUserID {
		return "", nil
	}
	if !msg.Direct() {
		return "Send /newtasks in a direct chat, not in the group.", nil
	}

	count, err := r.pool.Replace(ctx, strings.Split(body, "\n"))
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return "Provide at least 3 sentences, one per line.", nil
		}
		return "", fmt.Errorf("replace pool: %w", err)
	}

	return fmt.Sprintf("Sentence pool replaced: %d sentences saved.", count), nil
}

func (r *Router) handleReset(ctx context.Context, msg Message, body string) (string, error) {
	if msg.UserID != r.adminUserID {
		return "", nil
	}

	targetID, day, err := parseResetArgs(body, msg.UserID, time.Now())
	if err != nil {
		return "Usage: /reset [user_id] [YYYY-MM-DD]", nil
	}

	counts, err := r.admin.ResetUser(ctx, targetID, day)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}

	return fmt.Sprintf("Reset for user %d on %s: %d submissions, %d sessions, %d assignments removed.",
		targetID, domain.Day(day).Format("2006-01-02"),
		counts.Submissions, counts.Sessions, counts.Assignments), nil
}

// splitCommand separates the leading "/command" token from the rest of the
// message. Platform mention suffixes ("/go@botname") are stripped.
func splitCommand(text string) (cmd, body string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	cmd = text
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmd = text[:i]
		body = strings.TrimSpace(text[i+1:])
	}

	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}

	return strings.ToLower(cmd), body
}

// parseResetArgs parses the optional "[user_id] [YYYY-MM-DD]" arguments,
// defaulting to the requester and today.
func parseResetArgs(body string, defaultUser int64, now time.Time) (int64, time.Time, error) {
	targetID := defaultUser
	day := domain.Day(now)

	fields := strings.Fields(body)
	if len(fields) > 2 {
		return 0, time.Time{}, fmt.Errorf("too many arguments")
	}

	if len(fields) >= 1 {
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("user id: %w", err)
		}
		targetID = id
	}

	if len(fields) == 2 {
		d, err := time.Parse("2006-01-02", fields[1])
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("date: %w", err)
		}
		day = d
	}

	return targetID, day, nil
}

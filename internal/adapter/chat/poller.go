package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/bot"
	"github.com/heartmarshall/sprachduell-bot/internal/config"
	"github.com/heartmarshall/sprachduell-bot/pkg/ctxutil"
)

const pollTimeout = 30 * time.Second

// Poller reads incoming messages via Bot API long polling and feeds them to
// a handler. Replies returned by the handler are sent back to the chat the
// message came from.
type Poller struct {
	baseURL    string
	token      string
	cfg        config.ChatConfig
	httpClient *http.Client
	handler    Handler
	log        *slog.Logger

	offset int64
}

// Handler processes one incoming message and returns the reply text.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message) (string, error)
}

// NewPoller creates a Poller feeding the given handler.
func NewPoller(cfg config.ChatConfig, handler Handler, logger *slog.Logger) *Poller {
	return &Poller{
		baseURL: cfg.APIBaseURL,
		token:   cfg.BotToken,
		cfg:     cfg,
		// Client timeout must exceed the long-poll hold time.
		httpClient: &http.Client{Timeout: pollTimeout + 10*time.Second},
		handler:    handler,
		log:        logger.With("adapter", "poller"),
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

// Run polls for updates until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.InfoContext(ctx, "polling started")

	for {
		updates, err := p.fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			p.log.ErrorContext(ctx, "fetch updates failed", slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			p.offset = u.UpdateID + 1
			p.dispatch(ctx, u)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]update, error) {
	reqURL := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d&allowed_updates=[\"message\"]",
		p.baseURL, p.token, int(pollTimeout.Seconds()), p.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chat: create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat: read body: %w", err)
	}

	var api updatesResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return nil, fmt.Errorf("chat: decode response: %w", err)
	}
	if !api.OK {
		return nil, fmt.Errorf("chat: api error (status %d): %s", resp.StatusCode, api.Description)
	}

	return api.Result, nil
}

func (p *Poller) dispatch(ctx context.Context, u update) {
	if u.Message == nil || u.Message.From == nil || u.Message.Text == "" {
		return
	}

	username := u.Message.From.Username
	if username == "" {
		username = u.Message.From.FirstName
	}

	msg := bot.Message{
		UserID:   u.Message.From.ID,
		Username: username,
		ChatID:   u.Message.Chat.ID,
		Text:     u.Message.Text,
	}

	// Only the served group and direct chats are handled.
	if !msg.Direct() && msg.ChatID != p.cfg.GroupID {
		return
	}

	ctx = ctxutil.WithUpdateID(ctx, u.UpdateID)
	ctx = ctxutil.WithSenderID(ctx, msg.UserID)

	reply, err := p.handler.Handle(ctx, msg)
	if err != nil {
		p.log.ErrorContext(ctx, "handle failed",
			slog.Int64("update_id", u.UpdateID),
			slog.Int64("user_id", msg.UserID),
			slog.String("error", err.Error()),
		)
		reply = "Something went wrong on my side. Try again in a minute."
	}
	if reply == "" {
		return
	}

	sink := NewSinkTo(p.cfg, msg.ChatID, p.log)
	if err := sink.Send(ctx, reply); err != nil {
		p.log.ErrorContext(ctx, "reply failed",
			slog.Int64("chat_id", msg.ChatID),
			slog.String("error", err.Error()),
		)
	}
}

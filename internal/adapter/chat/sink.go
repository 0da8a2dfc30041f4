// Package chat implements the outbound side of the Telegram Bot API:
// plain sendMessage calls to the group chat. The inbound update stream is
// handled by the transport wiring in cmd/bot.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/sprachduell-bot/internal/config"
)

// Sink sends text messages to one fixed chat.
type Sink struct {
	baseURL    string
	token      string
	chatID     int64
	httpClient *http.Client
	log        *slog.Logger
}

// NewSink creates a Sink bound to the configured group chat.
func NewSink(cfg config.ChatConfig, logger *slog.Logger) *Sink {
	return &Sink{
		baseURL:    cfg.APIBaseURL,
		token:      cfg.BotToken,
		chatID:     cfg.GroupID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "chat"),
	}
}

// NewSinkTo creates a Sink bound to an arbitrary chat (direct replies).
func NewSinkTo(cfg config.ChatConfig, chatID int64, logger *slog.Logger) *Sink {
	s := NewSink(cfg, logger)
	s.chatID = chatID
	return s
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers one text message to the bound chat.
func (s *Sink) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: s.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("chat: encode payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.doWithRetry(ctx, req, payload)
	if err != nil {
		s.log.ErrorContext(ctx, "send failed", slog.String("error", err.Error()))
		return fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("chat: decode response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("chat: api error (status %d): %s", resp.StatusCode, api.Description)
	}

	return nil
}

// doWithRetry executes the request with a single retry on 5xx or network
// errors. The body must be re-supplied because the first attempt drains it.
func (s *Sink) doWithRetry(ctx context.Context, req *http.Request, payload []byte) (*http.Response, error) {
	resp, err := s.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	s.log.WarnContext(ctx, "send retry", slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	retryReq := req.Clone(ctx)
	retryReq.Body = io.NopCloser(bytes.NewReader(payload))

	return s.httpClient.Do(retryReq)
}

package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/heartmarshall/sprachduell-bot/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCfg(baseURL string) config.ChatConfig {
	return config.ChatConfig{
		BotToken:   "TOKEN",
		GroupID:    -100200300,
		APIBaseURL: baseURL,
	}
}

func TestSink_Send_Success(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotReq sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSink(testCfg(srv.URL), newTestLogger())
	if err := s.Send(context.Background(), "hello group"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q, want /botTOKEN/sendMessage", gotPath)
	}
	if gotReq.ChatID != -100200300 {
		t.Errorf("chat_id = %d, want -100200300", gotReq.ChatID)
	}
	if gotReq.Text != "hello group" {
		t.Errorf("text = %q, want %q", gotReq.Text, "hello group")
	}
}

func TestSink_Send_RetryOn5xxSuccess(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	var secondBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := callCount.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok":false,"description":"Bad Gateway"}`))
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&secondBody); err != nil {
			t.Errorf("decode retry request: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSink(testCfg(srv.URL), newTestLogger())
	if err := s.Send(context.Background(), "retry me"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := callCount.Load(); got != 2 {
		t.Errorf("call count = %d, want 2", got)
	}
	// The retry must resend the full payload, not a drained body.
	if secondBody.Text != "retry me" {
		t.Errorf("retry text = %q, want %q", secondBody.Text, "retry me")
	}
}

func TestSink_Send_BothAttemptsFail(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"ok":false,"description":"internal"}`))
	}))
	defer srv.Close()

	s := NewSink(testCfg(srv.URL), newTestLogger())
	if err := s.Send(context.Background(), "doomed"); err == nil {
		t.Fatal("expected error when both attempts fail")
	}
	if got := callCount.Load(); got != 2 {
		t.Errorf("call count = %d, want 2", got)
	}
}

func TestSink_Send_APIErrorNoRetry(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	s := NewSink(testCfg(srv.URL), newTestLogger())
	err := s.Send(context.Background(), "nowhere")
	if err == nil {
		t.Fatal("expected error for api rejection")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error should carry the api description, got %v", err)
	}
	// 4xx is the api's final answer, not a transient failure.
	if got := callCount.Load(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}
}

func TestNewSinkTo_OverridesChat(t *testing.T) {
	t.Parallel()

	var gotReq sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSinkTo(testCfg(srv.URL), 424242, newTestLogger())
	if err := s.Send(context.Background(), "direct reply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.ChatID != 424242 {
		t.Errorf("chat_id = %d, want 424242", gotReq.ChatID)
	}
}

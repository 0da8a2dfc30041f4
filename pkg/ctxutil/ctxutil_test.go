package ctxutil

import (
	"context"
	"testing"
)

func TestWithSenderID_And_SenderIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithSenderID(context.Background(), 123456789)

	got, ok := SenderIDFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for valid sender id")
	}
	if got != 123456789 {
		t.Fatalf("expected 123456789, got %d", got)
	}
}

func TestSenderIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := SenderIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestSenderIDFromCtx_ZeroID(t *testing.T) {
	t.Parallel()

	ctx := WithSenderID(context.Background(), 0)

	got, ok := SenderIDFromCtx(ctx)
	if ok {
		t.Fatal("expected ok=false for zero id")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestSenderIDFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("sender_id"), "not-an-int")

	got, ok := SenderIDFromCtx(ctx)
	if ok {
		t.Fatal("expected ok=false for wrong type")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestWithUpdateID_And_UpdateIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithUpdateID(context.Background(), 42)

	got := UpdateIDFromCtx(ctx)
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestUpdateIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got := UpdateIDFromCtx(context.Background())
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestUpdateIDFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("update_id"), "42")

	got := UpdateIDFromCtx(ctx)
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

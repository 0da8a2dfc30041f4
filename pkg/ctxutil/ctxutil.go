package ctxutil

import "context"

type ctxKey string

const (
	senderIDKey ctxKey = "sender_id"
	updateIDKey ctxKey = "update_id"
)

// WithSenderID stores the chat sender's user ID in the context.
func WithSenderID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, senderIDKey, id)
}

// SenderIDFromCtx extracts the sender's user ID from the context.
// Returns 0 and false if the value is missing, zero, or wrong type.
func SenderIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(senderIDKey).(int64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithUpdateID stores the incoming update's ID in the context.
func WithUpdateID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, updateIDKey, id)
}

// UpdateIDFromCtx extracts the update ID from the context.
// Returns 0 if absent.
func UpdateIDFromCtx(ctx context.Context) int64 {
	id, _ := ctx.Value(updateIDKey).(int64)
	return id
}

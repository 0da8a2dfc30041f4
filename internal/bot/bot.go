// Package bot is the chat-facing surface of the engine: it parses incoming
// commands, calls the services, and formats replies. The transport itself
// (long polling, webhooks) is an external collaborator; it feeds Messages in
// and delivers the returned reply text. Broadcast-style output goes through
// the Sink capability instead of any shared global handle.
package bot

import "context"

// Message is one incoming chat message, already decoded by the transport.
type Message struct {
	UserID   int64
	Username string
	ChatID   int64
	Text     string
}

// Direct reports whether the message arrived in a one-on-one chat
// (chat id equals the sender id on the platforms this bot targets).
func (m Message) Direct() bool {
	return m.ChatID == m.UserID
}

// Sink delivers a text message to the group chat. Scheduled reports and
// broadcasts depend on this capability only.
type Sink interface {
	Send(ctx context.Context, text string) error
}

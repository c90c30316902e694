// Package domain contains core concepts of the bot pair.
// Values are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author side of a logged message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

// MessageRef points at one transport message so it can be edited
// or replied to later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Inbound is one pending user message waiting in a queue.
type Inbound struct {
	UserID int64
	Ref    MessageRef // the user's own message, used for replies
	Text   string
	At     time.Time
}

// Fragment is one incremental piece of generated text. A failing
// stream delivers its error as the last fragment before closing.
type Fragment struct {
	Text string
	Err  error
}

// Message is an immutable entry of the conversation log.
type Message struct {
	ID       uuid.UUID
	UserID   int64
	Role     Role
	Content  string
	Language string
	At       time.Time
}

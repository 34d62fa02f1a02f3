// Package domain contains core concepts of the chat relay.
// This file defines Message values and related rules.
// Messages are immutable and carry no transport concerns.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable inbound chat message.
type Message struct {
	ID        uuid.UUID // unique identifier
	SenderID  uuid.UUID // session that produced the message
	Sender    string    // display name at send time
	Content   string
	CreatedAt time.Time
}

// Render formats the message the way every client displays it.
func (m Message) Render() string {
	return m.Sender + ": " + m.Content
}

// Package session holds the conversation session state: the selected
// subject and proficiency mode, the active augmentation tool, the busy
// flag, and the ordered message log.
//
// The session is the only mutable shared state in the application. It is
// created once at startup, owned by the top-level application, and mutated
// exclusively through the chat controller. There is no persistence:
// selecting a new subject discards the prior conversation entirely.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Mode is the proficiency level selector. The zero value means
// "not yet chosen", which is a valid state rather than an error.
type Mode string

// Proficiency modes, as sent to the backend.
const (
	ModeUnset    Mode = ""
	ModeOrdinary Mode = "OL"
	ModeAdvanced Mode = "AL"
)

// ParseMode converts a string to a Mode. Only "OL" and "AL" are valid.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeOrdinary:
		return ModeOrdinary, true
	case ModeAdvanced:
		return ModeAdvanced, true
	}
	return ModeUnset, false
}

// Message is a single conversation turn.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Content   string
	Timestamp time.Time
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

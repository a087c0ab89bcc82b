package session

import "errors"

// ErrStreamInProgress indicates a second in-progress bot message was
// requested while one is already being streamed into.
var ErrStreamInProgress = errors.New("bot message already in progress")

// Log is the ordered message log. It is append-only except for a single
// mutation point: the content of the one in-progress bot message may be
// replaced while a response stream is in flight.
//
// The in-progress slot is addressed by index into the backing slice rather
// than by a shared pointer, so ownership of the streaming message is
// unambiguous. Invariant: at most one message is in progress at any time,
// and while in progress it is always the last element of the log.
//
// Not thread-safe - the owning Session synchronizes access.
type Log struct {
	messages   []Message
	inProgress int // index of the streaming bot message, -1 when none
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{inProgress: -1}
}

// Append adds a completed message to the log and returns it.
func (l *Log) Append(role Role, content string) Message {
	msg := newMessage(role, content)
	l.messages = append(l.messages, msg)
	return msg
}

// BeginBot appends an empty bot message and marks it in progress.
// Returns ErrStreamInProgress if a streaming message already exists.
func (l *Log) BeginBot() (Message, error) {
	if l.inProgress >= 0 {
		return Message{}, ErrStreamInProgress
	}
	msg := newMessage(RoleBot, "")
	l.messages = append(l.messages, msg)
	l.inProgress = len(l.messages) - 1
	return msg, nil
}

// SetInProgress replaces the content of the in-progress bot message.
// Reports whether a streaming message existed to update.
func (l *Log) SetInProgress(content string) bool {
	if l.inProgress < 0 {
		return false
	}
	l.messages[l.inProgress].Content = content
	return true
}

// Complete clears the in-progress marker, freezing the streamed message.
func (l *Log) Complete() {
	l.inProgress = -1
}

// InProgress reports whether a bot message is currently being streamed.
func (l *Log) InProgress() bool {
	return l.inProgress >= 0
}

// Messages returns a copy of all messages.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Clear removes all messages and any in-progress marker.
func (l *Log) Clear() {
	l.messages = nil
	l.inProgress = -1
}

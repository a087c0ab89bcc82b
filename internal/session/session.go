package session

import (
	"sync"

	"github.com/lewa0/lewa/internal/catalog"
)

// Session is the process-wide conversation state.
//
// Invariants:
//   - started implies a subject and mode are selected.
//   - busy implies exactly one send is in flight; re-entrant sends are
//     rejected by TryBeginSend.
//   - Selecting a new subject resets mode, started, active tool, and log.
//
// A mutex guards all fields. There is no true parallelism in the intended
// single-session flow, but sends suspend at network boundaries, so the
// "one send in flight" invariant is enforced explicitly rather than
// assumed.
type Session struct {
	mu         sync.Mutex
	subject    *catalog.Subject
	mode       Mode
	started    bool
	activeTool string // "" = no augmentation
	busy       bool
	log        *Log
}

// New creates an empty session.
func New() *Session {
	return &Session{log: NewLog()}
}

// SetSubject selects a subject and discards the prior conversation:
// mode, started flag, active tool, and message log all reset.
func (s *Session) SetSubject(subj catalog.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = &subj
	s.mode = ModeUnset
	s.started = false
	s.activeTool = ""
	s.log.Clear()
}

// Subject returns the selected subject, if any.
func (s *Session) Subject() (catalog.Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject == nil {
		return catalog.Subject{}, false
	}
	return *s.subject, true
}

// SetMode selects the proficiency mode. It applies only when a subject is
// already selected; otherwise it reports false and leaves state untouched.
func (s *Session) SetMode(m Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject == nil {
		return false
	}
	s.mode = m
	return true
}

// Mode returns the selected mode (ModeUnset when not chosen).
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Start marks the chat as started and seeds the log with the welcome
// message. It applies only when a subject and mode are selected and the
// chat has not already started; otherwise it reports false.
func (s *Session) Start(welcome string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject == nil || s.mode == ModeUnset || s.started {
		return false
	}
	s.started = true
	s.log.Append(RoleBot, welcome)
	return true
}

// Started reports whether the chat has started.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// SetActiveTool sets or clears ("" clears) the augmentation tool.
func (s *Session) SetActiveTool(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTool = id
}

// ActiveTool returns the active tool id ("" when none).
func (s *Session) ActiveTool() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTool
}

// Busy reports whether a send is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// TryBeginSend marks the session busy. It reports false if a send is
// already in flight, in which case the caller must not proceed.
func (s *Session) TryBeginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// EndSend clears the busy flag. Safe to call on every exit path.
func (s *Session) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// AppendUser appends a user message to the log.
func (s *Session) AppendUser(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Append(RoleUser, content)
}

// AppendBot appends a completed bot message to the log.
func (s *Session) AppendBot(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Append(RoleBot, content)
}

// BeginBotMessage appends the empty in-progress bot message.
func (s *Session) BeginBotMessage() (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.BeginBot()
}

// UpdateBotMessage replaces the in-progress bot message content with the
// accumulated stream text. Reports whether an in-progress message existed;
// a false return means the log was reset mid-stream and the update was
// dropped.
func (s *Session) UpdateBotMessage(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.SetInProgress(content)
}

// FinishBotMessage freezes the in-progress bot message.
func (s *Session) FinishBotMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Complete()
}

// FailBotMessage replaces the in-progress bot message with the given
// content and freezes it. If no message is in progress (the failure
// happened before streaming began), the content is appended instead, so
// every failed send yields exactly one bot message.
func (s *Session) FailBotMessage(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.log.SetInProgress(content) {
		s.log.Append(RoleBot, content)
		return
	}
	s.log.Complete()
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Messages()
}

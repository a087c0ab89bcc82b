// Package chat implements the conversation session controller: the state
// machine that governs session lifecycle (subject, mode, chat start, tool
// selection) and the one asynchronous operation, SendMessage, which
// augments the question, calls the tutoring service, and assembles the
// streamed reply into the message log chunk by chunk.
//
// Lifecycle operations mutate session state synchronously and never fail:
// out-of-order calls (selecting a mode before a subject, starting a chat
// before a mode) are silent no-ops rather than errors. SendMessage is the
// only operation with suspension points, and the only one that can fail.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lewa0/lewa/internal/catalog"
	"github.com/lewa0/lewa/internal/log"
	"github.com/lewa0/lewa/internal/session"
	"github.com/lewa0/lewa/internal/tutor"
)

// tracerName identifies this package's tracer.
const tracerName = "github.com/lewa0/lewa/internal/chat"

const (
	// welcomeTemplate seeds the log when a chat starts. Arguments:
	// subject name, mode, subject name.
	welcomeTemplate = "Welcome to %s %s tutoring! I'm here to help you excel. Ask me anything related to %s."

	// apologyMessage is the single user-visible failure: it replaces (or
	// becomes) the bot reply when the tutoring call fails.
	apologyMessage = "I'm sorry, I encountered an error connecting to the tutor. Please check if the backend is running."
)

// ErrSendFailed wraps tutoring failures surfaced by SendMessage. The
// apology message has already been placed in the log by the time this is
// returned.
var ErrSendFailed = errors.New("send failed")

// Augmenter rewrites a raw question according to the active tool.
// Implementations must be best-effort: they return the original content
// on any internal failure.
type Augmenter interface {
	Rewrite(ctx context.Context, content, toolID string) string
}

// Tutor issues a tutoring request and exposes the reply as a chunk
// stream.
type Tutor interface {
	Ask(ctx context.Context, subjectID, question string, mode session.Mode) (tutor.Stream, error)
}

// StreamCallback is called with each raw chunk as it is applied to the
// in-progress bot message, enabling typewriter-style display.
type StreamCallback func(chunk string)

// Config contains the controller's dependencies.
type Config struct {
	Session   *session.Session
	Augmenter Augmenter
	Tutor     Tutor
	Logger    log.Logger
}

func (cfg Config) validate() error {
	if cfg.Session == nil {
		return errors.New("session is required")
	}
	if cfg.Augmenter == nil {
		return errors.New("augmenter is required")
	}
	if cfg.Tutor == nil {
		return errors.New("tutor is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Controller orchestrates the session. It is the sole mutator of session
// state; the augmenter and tutor return values and never touch the
// session directly.
type Controller struct {
	sess   *session.Session
	aug    Augmenter
	tutor  Tutor
	logger log.Logger
}

// New creates a controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Controller{
		sess:   cfg.Session,
		aug:    cfg.Augmenter,
		tutor:  cfg.Tutor,
		logger: cfg.Logger,
	}, nil
}

// SelectSubject selects a subject, discarding any prior conversation.
// Subsequent sends target the new subject's endpoint.
func (c *Controller) SelectSubject(subj catalog.Subject) {
	c.sess.SetSubject(subj)
	c.logger.Debug("subject selected", "subject", subj.ID)
}

// SelectMode selects the proficiency mode. Ignored (with a debug log)
// when no subject is selected yet.
func (c *Controller) SelectMode(m session.Mode) {
	if !c.sess.SetMode(m) {
		c.logger.Debug("mode selection ignored: no subject selected", "mode", string(m))
	}
}

// StartChat starts the conversation, seeding the log with the welcome
// message. It reports whether the chat started; it is a no-op (never an
// error) when subject or mode is missing or the chat already started.
func (c *Controller) StartChat() bool {
	subj, ok := c.sess.Subject()
	if !ok {
		return false
	}
	welcome := fmt.Sprintf(welcomeTemplate, subj.Name, c.sess.Mode(), subj.Name)
	started := c.sess.Start(welcome)
	if started {
		c.logger.Info("chat started", "subject", subj.ID, "mode", string(c.sess.Mode()))
	}
	return started
}

// SetActiveTool sets the augmentation tool; the empty string clears it.
// Ids are not validated against the catalog here: an unrecognized id
// degrades to pass-through at send time.
func (c *Controller) SetActiveTool(id string) {
	c.sess.SetActiveTool(id)
}

// ClearActiveTool disables augmentation.
func (c *Controller) ClearActiveTool() {
	c.sess.SetActiveTool("")
}

// SendMessage sends a user message and assembles the streamed reply.
// Convenience wrapper around SendMessageStream with no chunk callback.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	return c.SendMessageStream(ctx, content, nil)
}

// SendMessageStream sends a user message with an optional per-chunk
// callback.
//
// Protocol:
//  1. The user's content is appended to the log before any network call.
//  2. The augmentation pipeline runs to completion (or falls back).
//  3. The tutoring request is issued; an empty bot message is appended
//     and filled in chunk by chunk, in strict arrival order.
//
// Empty (whitespace-only) content is a no-op. A call while a send is
// already in flight is a no-op: the log is never touched. On tutoring
// failure the in-progress bot message is replaced by a fixed apology
// (partial content discarded) and an ErrSendFailed-wrapped error is
// returned. The busy flag is released on every exit path.
func (c *Controller) SendMessageStream(ctx context.Context, content string, cb StreamCallback) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if !c.sess.TryBeginSend() {
		c.logger.Warn("send ignored: another send is in flight")
		return nil
	}
	defer c.sess.EndSend()

	c.sess.AppendUser(content)

	subj, ok := c.sess.Subject()
	if !ok || c.sess.Mode() == session.ModeUnset {
		c.logger.Debug("send ignored: subject or mode not selected")
		return nil
	}

	mode := c.sess.Mode()
	toolID := c.sess.ActiveTool()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "chat.send")
	span.SetAttributes(
		attribute.String("subject", subj.ID),
		attribute.String("mode", string(mode)),
		attribute.String("tool", toolID),
	)
	defer span.End()

	// Augmentation fully completes (or falls back) before the tutoring
	// call; it is never interleaved with streaming.
	finalQuestion := c.aug.Rewrite(ctx, content, toolID)

	stream, err := c.tutor.Ask(ctx, subj.ID, finalQuestion, mode)
	if err != nil {
		return c.failSend(span, err)
	}

	if _, err := c.sess.BeginBotMessage(); err != nil {
		// Unreachable while the busy guard holds; recover rather than
		// corrupt the log.
		return c.failSend(span, err)
	}

	var assembled strings.Builder
	for chunk, err := range stream {
		if err != nil {
			return c.failSend(span, err)
		}
		assembled.WriteString(chunk)
		c.sess.UpdateBotMessage(assembled.String())
		if cb != nil {
			cb(chunk)
		}
	}

	c.sess.FinishBotMessage()
	c.logger.Debug("send completed", "subject", subj.ID, "response_len", assembled.Len())
	return nil
}

// failSend records the failure, surfaces the apology to the user, and
// wraps the cause. Partial streamed content is discarded: a failed send
// always yields exactly one bot message holding the apology.
func (c *Controller) failSend(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "send failed")
	c.sess.FailBotMessage(apologyMessage)
	c.logger.Error("send failed", "error", err)
	return fmt.Errorf("%w: %w", ErrSendFailed, err)
}

// Messages returns a copy of the conversation log.
func (c *Controller) Messages() []session.Message {
	return c.sess.Messages()
}

// Busy reports whether a send is in flight.
func (c *Controller) Busy() bool {
	return c.sess.Busy()
}

package session

import (
	"errors"
	"testing"
)

func TestLogAppendOrder(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "first")
	l.Append(RoleBot, "second")
	l.Append(RoleUser, "third")

	msgs := l.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Len() = %d, want 3", len(msgs))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("messages[%d].Content = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestLogMessageIdentity(t *testing.T) {
	l := NewLog()
	a := l.Append(RoleUser, "hello")
	b := l.Append(RoleUser, "hello")

	if a.ID == b.ID {
		t.Error("two messages with equal content share an ID")
	}
	if a.Timestamp.IsZero() {
		t.Error("message timestamp is zero")
	}
}

func TestLogBeginBot(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "question")

	msg, err := l.BeginBot()
	if err != nil {
		t.Fatalf("BeginBot() error = %v", err)
	}
	if msg.Role != RoleBot || msg.Content != "" {
		t.Errorf("BeginBot() = {%s %q}, want empty bot message", msg.Role, msg.Content)
	}
	if !l.InProgress() {
		t.Error("InProgress() = false after BeginBot")
	}

	// The in-progress message must be the last element.
	msgs := l.Messages()
	if msgs[len(msgs)-1].Role != RoleBot {
		t.Error("in-progress message is not the last element")
	}

	if _, err := l.BeginBot(); !errors.Is(err, ErrStreamInProgress) {
		t.Errorf("second BeginBot() error = %v, want ErrStreamInProgress", err)
	}
}

func TestLogSetInProgress(t *testing.T) {
	l := NewLog()
	if l.SetInProgress("orphan") {
		t.Error("SetInProgress succeeded with no message in progress")
	}

	if _, err := l.BeginBot(); err != nil {
		t.Fatal(err)
	}

	for _, content := range []string{"Hel", "Hello", "Hello there"} {
		if !l.SetInProgress(content) {
			t.Fatalf("SetInProgress(%q) = false", content)
		}
		msgs := l.Messages()
		if got := msgs[len(msgs)-1].Content; got != content {
			t.Errorf("last message content = %q, want %q", got, content)
		}
	}

	if l.Len() != 1 {
		t.Errorf("Len() = %d after repeated updates, want 1", l.Len())
	}
}

func TestLogComplete(t *testing.T) {
	l := NewLog()
	if _, err := l.BeginBot(); err != nil {
		t.Fatal(err)
	}
	l.SetInProgress("done")
	l.Complete()

	if l.InProgress() {
		t.Error("InProgress() = true after Complete")
	}
	if l.SetInProgress("late") {
		t.Error("SetInProgress succeeded after Complete")
	}
	if got := l.Messages()[0].Content; got != "done" {
		t.Errorf("completed content = %q, want %q", got, "done")
	}
}

func TestLogClear(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "a")
	if _, err := l.BeginBot(); err != nil {
		t.Fatal(err)
	}
	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", l.Len())
	}
	if l.InProgress() {
		t.Error("InProgress() = true after Clear")
	}
	// A cleared log accepts a fresh stream.
	if _, err := l.BeginBot(); err != nil {
		t.Errorf("BeginBot() after Clear error = %v", err)
	}
}

func TestLogMessagesCopy(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "original")

	msgs := l.Messages()
	msgs[0].Content = "mutated"

	if got := l.Messages()[0].Content; got != "original" {
		t.Errorf("log content = %q after mutating the copy, want %q", got, "original")
	}
}

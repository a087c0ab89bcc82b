package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/lewa0/lewa/internal/catalog"
	"github.com/lewa0/lewa/internal/session"
	"github.com/lewa0/lewa/internal/testutil"
	"github.com/lewa0/lewa/internal/tutor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAugmenter records calls and applies a visible prefix so tests can
// tell augmented questions from raw ones.
type fakeAugmenter struct {
	prefix     string
	gotContent string
	gotTool    string
}

func (f *fakeAugmenter) Rewrite(ctx context.Context, content, toolID string) string {
	f.gotContent = content
	f.gotTool = toolID
	return f.prefix + content
}

// fakeTutor serves canned chunks, optionally failing before or during the
// stream.
type fakeTutor struct {
	chunks    []string
	askErr    error
	streamErr error

	calls       int
	gotSubject  string
	gotQuestion string
	gotMode     session.Mode

	// onAsk runs inside Ask, before the stream is returned. Used to
	// exercise re-entrancy while a send is in flight.
	onAsk func()
}

func (f *fakeTutor) Ask(ctx context.Context, subjectID, question string, mode session.Mode) (tutor.Stream, error) {
	f.calls++
	f.gotSubject = subjectID
	f.gotQuestion = question
	f.gotMode = mode
	if f.onAsk != nil {
		f.onAsk()
	}
	if f.askErr != nil {
		return nil, f.askErr
	}
	return func(yield func(string, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}, nil
}

type fixture struct {
	controller *Controller
	sess       *session.Session
	aug        *fakeAugmenter
	tutor      *fakeTutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sess:  session.New(),
		aug:   &fakeAugmenter{},
		tutor: &fakeTutor{chunks: []string{"answer"}},
	}
	c, err := New(Config{
		Session:   f.sess,
		Augmenter: f.aug,
		Tutor:     f.tutor,
		Logger:    testutil.Logger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.controller = c
	return f
}

// ready moves the fixture into a started Mathematics/OL chat.
func (f *fixture) ready(t *testing.T) {
	t.Helper()
	subj, ok := catalog.SubjectByID("mathematics")
	if !ok {
		t.Fatal("mathematics not in catalog")
	}
	f.controller.SelectSubject(subj)
	f.controller.SelectMode(session.ModeOrdinary)
	if !f.controller.StartChat() {
		t.Fatal("StartChat() = false")
	}
}

func TestStartChatWelcome(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	msgs := f.controller.Messages()
	if len(msgs) != 1 {
		t.Fatalf("len(Messages()) = %d, want 1", len(msgs))
	}
	want := "Welcome to Mathematics OL tutoring! I'm here to help you excel. Ask me anything related to Mathematics."
	if msgs[0].Role != session.RoleBot || msgs[0].Content != want {
		t.Errorf("welcome = {%s %q}, want bot %q", msgs[0].Role, msgs[0].Content, want)
	}
}

func TestStartChatPreconditions(t *testing.T) {
	f := newFixture(t)

	if f.controller.StartChat() {
		t.Error("StartChat() = true with no subject")
	}

	subj, _ := catalog.SubjectByID("physics")
	f.controller.SelectSubject(subj)
	if f.controller.StartChat() {
		t.Error("StartChat() = true with no mode")
	}

	f.controller.SelectMode(session.ModeAdvanced)
	if !f.controller.StartChat() {
		t.Fatal("StartChat() = false with subject and mode set")
	}
	if f.controller.StartChat() {
		t.Error("StartChat() = true twice")
	}
	if got := len(f.controller.Messages()); got != 1 {
		t.Errorf("len(Messages()) = %d after repeated StartChat, want 1", got)
	}
}

func TestSelectModeWithoutSubject(t *testing.T) {
	f := newFixture(t)
	f.controller.SelectMode(session.ModeOrdinary)

	if got := f.sess.Mode(); got != session.ModeUnset {
		t.Errorf("Mode() = %q after ignored SelectMode, want unset", got)
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.tutor.chunks = []string{"A prime ", "has exactly ", "two divisors."}

	before := len(f.controller.Messages())
	if err := f.controller.SendMessage(context.Background(), "What are prime numbers?"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	msgs := f.controller.Messages()
	if got := len(msgs); got != before+2 {
		t.Fatalf("len(Messages()) = %d, want %d (one user, one bot)", got, before+2)
	}

	user := msgs[before]
	if user.Role != session.RoleUser || user.Content != "What are prime numbers?" {
		t.Errorf("user message = {%s %q}, want raw question", user.Role, user.Content)
	}

	bot := msgs[before+1]
	if bot.Role != session.RoleBot || bot.Content != "A prime has exactly two divisors." {
		t.Errorf("bot message = {%s %q}, want assembled answer", bot.Role, bot.Content)
	}

	if f.tutor.gotSubject != "mathematics" || f.tutor.gotMode != session.ModeOrdinary {
		t.Errorf("tutor got (%q, %q), want (mathematics, OL)", f.tutor.gotSubject, f.tutor.gotMode)
	}
	if f.controller.Busy() {
		t.Error("Busy() = true after send completed")
	}
}

func TestSendMessageChunkCallback(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.tutor.chunks = []string{"one", "two", "three"}

	var got []string
	err := f.controller.SendMessageStream(context.Background(), "q", func(chunk string) {
		got = append(got, chunk)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("callback chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkingInvisibleInFinalContent(t *testing.T) {
	lastBot := func(t *testing.T, chunks []string) string {
		t.Helper()
		f := newFixture(t)
		f.ready(t)
		f.tutor.chunks = chunks
		if err := f.controller.SendMessage(context.Background(), "q"); err != nil {
			t.Fatal(err)
		}
		msgs := f.controller.Messages()
		return msgs[len(msgs)-1].Content
	}

	split := lastBot(t, []string{"Hel", "lo"})
	whole := lastBot(t, []string{"Hello"})
	if split != whole || split != "Hello" {
		t.Errorf("assembled %q (split) vs %q (whole), want both %q", split, whole, "Hello")
	}
}

func TestSendEmptyContent(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		if err := f.controller.SendMessage(context.Background(), content); err != nil {
			t.Errorf("SendMessage(%q) error = %v", content, err)
		}
	}
	if got := len(f.controller.Messages()); got != 1 {
		t.Errorf("len(Messages()) = %d after blank sends, want 1 (welcome only)", got)
	}
	if f.tutor.calls != 0 {
		t.Errorf("tutor calls = %d for blank sends, want 0", f.tutor.calls)
	}
}

func TestSendWithoutSubjectOrMode(t *testing.T) {
	f := newFixture(t)

	// No subject at all: the user message is still recorded.
	if err := f.controller.SendMessage(context.Background(), "hello?"); err != nil {
		t.Fatal(err)
	}
	msgs := f.controller.Messages()
	if len(msgs) != 1 || msgs[0].Role != session.RoleUser {
		t.Fatalf("Messages() = %+v, want single user message", msgs)
	}
	if f.tutor.calls != 0 {
		t.Errorf("tutor calls = %d, want 0", f.tutor.calls)
	}
	if f.controller.Busy() {
		t.Error("Busy() = true after early return")
	}
}

func TestSendWhileBusy(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	// Re-enter SendMessage while the first send sits inside the tutoring
	// call. The inner send must not touch the log or the tutor.
	var innerErr error
	f.tutor.onAsk = func() {
		f.tutor.onAsk = nil
		innerErr = f.controller.SendMessage(context.Background(), "interleaved")
	}

	if err := f.controller.SendMessage(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if innerErr != nil {
		t.Errorf("re-entrant SendMessage() error = %v, want nil no-op", innerErr)
	}
	if f.tutor.calls != 1 {
		t.Errorf("tutor calls = %d, want 1", f.tutor.calls)
	}

	msgs := f.controller.Messages()
	// welcome + user + bot: nothing from the interleaved send.
	if len(msgs) != 3 {
		t.Errorf("len(Messages()) = %d, want 3", len(msgs))
	}
	for _, msg := range msgs {
		if msg.Content == "interleaved" {
			t.Error("re-entrant send reached the log")
		}
	}
}

func TestSendAugmentation(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.aug.prefix = "[AUGMENTED] "
	f.controller.SetActiveTool(catalog.ToolResearcher)

	if err := f.controller.SendMessage(context.Background(), "raw question"); err != nil {
		t.Fatal(err)
	}

	if f.aug.gotContent != "raw question" || f.aug.gotTool != catalog.ToolResearcher {
		t.Errorf("augmenter got (%q, %q), want raw question and researcher", f.aug.gotContent, f.aug.gotTool)
	}
	if f.tutor.gotQuestion != "[AUGMENTED] raw question" {
		t.Errorf("tutor question = %q, want augmented", f.tutor.gotQuestion)
	}

	// The log holds the user's words, not the augmented prompt.
	msgs := f.controller.Messages()
	if msgs[1].Content != "raw question" {
		t.Errorf("logged user message = %q, want %q", msgs[1].Content, "raw question")
	}
}

func TestClearActiveTool(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.controller.SetActiveTool(catalog.ToolMessenger)
	f.controller.ClearActiveTool()

	if err := f.controller.SendMessage(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if f.aug.gotTool != "" {
		t.Errorf("augmenter tool = %q after clear, want empty", f.aug.gotTool)
	}
}

func TestSendAskFailure(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.tutor.askErr = errors.New("connection refused")

	err := f.controller.SendMessage(context.Background(), "q")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("SendMessage() error = %v, want ErrSendFailed", err)
	}

	msgs := f.controller.Messages()
	// welcome + user + apology.
	if len(msgs) != 3 {
		t.Fatalf("len(Messages()) = %d, want 3", len(msgs))
	}
	last := msgs[2]
	want := "I'm sorry, I encountered an error connecting to the tutor. Please check if the backend is running."
	if last.Role != session.RoleBot || last.Content != want {
		t.Errorf("last message = {%s %q}, want bot apology", last.Role, last.Content)
	}
	if f.controller.Busy() {
		t.Error("Busy() = true after failed send")
	}
}

func TestSendMidStreamFailure(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.tutor.chunks = []string{"partial ", "answ"}
	f.tutor.streamErr = errors.New("connection reset")

	err := f.controller.SendMessage(context.Background(), "q")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("SendMessage() error = %v, want ErrSendFailed", err)
	}

	msgs := f.controller.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len(Messages()) = %d, want 3 (one bot message per failed send)", len(msgs))
	}
	last := msgs[2]
	if strings.Contains(last.Content, "partial") {
		t.Errorf("apology retained partial content: %q", last.Content)
	}
	if !strings.HasPrefix(last.Content, "I'm sorry") {
		t.Errorf("last message = %q, want apology", last.Content)
	}

	// The session recovered: the next send works.
	f.tutor.streamErr = nil
	f.tutor.chunks = []string{"fine now"}
	if err := f.controller.SendMessage(context.Background(), "again"); err != nil {
		t.Fatalf("follow-up SendMessage() error = %v", err)
	}
}

func TestSelectSubjectResetsConversation(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	if err := f.controller.SendMessage(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	subj, _ := catalog.SubjectByID("chemistry")
	f.controller.SelectSubject(subj)

	if got := len(f.controller.Messages()); got != 0 {
		t.Errorf("len(Messages()) = %d after subject switch, want 0", got)
	}

	// The new conversation requires mode and start again.
	if f.controller.StartChat() {
		t.Error("StartChat() = true before a mode is chosen for the new subject")
	}
	f.controller.SelectMode(session.ModeOrdinary)
	if !f.controller.StartChat() {
		t.Error("StartChat() = false for the new subject")
	}
	if !strings.Contains(f.controller.Messages()[0].Content, "Chemistry") {
		t.Error("welcome does not mention the new subject")
	}
}

func TestNewValidation(t *testing.T) {
	valid := Config{
		Session:   session.New(),
		Augmenter: &fakeAugmenter{},
		Tutor:     &fakeTutor{},
		Logger:    testutil.Logger(),
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil session", func(c *Config) { c.Session = nil }},
		{"nil augmenter", func(c *Config) { c.Augmenter = nil }},
		{"nil tutor", func(c *Config) { c.Tutor = nil }},
		{"nil logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() succeeded with missing dependency")
			}
		})
	}
}

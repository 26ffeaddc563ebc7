package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/career-chat/internal"
)

type fakeEngine struct {
	mu         sync.Mutex
	messages   []internal.Message
	state      internal.SendState
	hydrateErr error
	submitted  []string
}

func (f *fakeEngine) Snapshot() []internal.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]internal.Message(nil), f.messages...)
}

func (f *fakeEngine) State() internal.SendState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeEngine) Submit(_ context.Context, text string) internal.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	f.messages = append(f.messages,
		internal.Message{ID: internal.LocalID(uint64(len(f.messages) + 1)), Role: internal.RoleUser, Content: text},
		internal.Message{ID: internal.RemoteID("99"), Role: internal.RoleBot, Content: "reply to " + text},
	)
	return internal.OutcomeSettled
}

func (f *fakeEngine) Hydrate(context.Context) error {
	return f.hydrateErr
}

func (f *fakeEngine) Subscribe(internal.Observer) func() {
	return func() {}
}

func newTestModel(t *testing.T, engine *fakeEngine) Model {
	t.Helper()
	m := New(context.Background(), engine, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(context.Background(), &fakeEngine{}, Options{})
	if !strings.Contains(m.View(), "Loading") {
		t.Errorf("View() before sizing = %q", m.View())
	}
	if m.Init() == nil {
		t.Error("Init() should start hydration")
	}
}

func TestModel_Header(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})
	view := m.View()
	for _, want := range []string{title, tagline} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Contains(view, "temporary session") {
		t.Error("persistent session should not be flagged as temporary")
	}

	eph := New(context.Background(), &fakeEngine{}, Options{Ephemeral: true})
	updated, _ := eph.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if !strings.Contains(updated.(Model).View(), "temporary session") {
		t.Error("ephemeral session should be flagged in the header")
	}
}

func TestModel_SubmitClearsInput(t *testing.T) {
	engine := &fakeEngine{}
	m := typeText(newTestModel(t, engine), "  What should I learn next?  ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("Enter with text should return a command")
	}
	if m.textinput.Value() != "" {
		t.Errorf("input = %q after submit, want cleared", m.textinput.Value())
	}
	if m.state != internal.StatePending {
		t.Errorf("state = %v, want pending", m.state)
	}

	msg := m.submitCmd("What should I learn next?")()
	if got, ok := msg.(submittedMsg); !ok || got.outcome != internal.OutcomeSettled {
		t.Fatalf("submitCmd() = %#v", msg)
	}
	if len(engine.submitted) != 1 || engine.submitted[0] != "What should I learn next?" {
		t.Errorf("engine received %q", engine.submitted)
	}

	updated, _ = m.Update(msg)
	m = updated.(Model)
	if len(m.messages) != 2 {
		t.Fatalf("model shows %d messages, want 2", len(m.messages))
	}
	if m.state != internal.StateIdle {
		t.Errorf("state = %v, want idle", m.state)
	}
	if !strings.Contains(m.View(), "reply to What should I learn next?") {
		t.Error("reply missing from view")
	}
}

func TestModel_BlankSubmitIgnored(t *testing.T) {
	engine := &fakeEngine{}
	m := typeText(newTestModel(t, engine), "   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("blank Enter should not issue a command")
	}
	if updated.(Model).state != internal.StateIdle {
		t.Error("blank Enter changed the lifecycle state")
	}
}

func TestModel_SubmitWhilePendingKeepsInput(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})
	updated, _ := m.Update(lifecycleMsg(internal.StatePending))
	m = typeText(updated.(Model), "second question")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd != nil {
		t.Error("Enter while pending should not issue a command")
	}
	if m.textinput.Value() != "second question" {
		t.Errorf("input = %q, want it kept while pending", m.textinput.Value())
	}
	if !strings.Contains(m.View(), "typing") {
		t.Error("pending state should show the typing indicator")
	}
}

func TestModel_TranscriptNotification(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})
	at := time.Date(2024, 5, 1, 14, 7, 0, 0, time.Local)

	updated, _ := m.Update(transcriptMsg{
		{ID: internal.RemoteID("1"), Role: internal.RoleBot, Content: "Hi there", ReceivedAt: at},
		{ID: internal.LocalID(1), Role: internal.RoleUser, Content: "skills?", ReceivedAt: at},
		{ID: internal.LocalID(2), Role: internal.RoleBot, Content: internal.ServerErrorReply, ReceivedAt: at, IsError: true},
	})
	view := updated.(Model).View()

	for _, want := range []string{"Hi there", "skills?", internal.ServerErrorReply, "14:07", "You", "AI"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_HydrationFailure(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})

	updated, _ := m.Update(hydratedMsg{err: errors.New("connection refused")})
	if !strings.Contains(updated.(Model).View(), "Could not load history") {
		t.Error("hydration failure should be reported")
	}

	updated, _ = m.Update(hydratedMsg{err: internal.ErrAlreadyHydrated})
	if strings.Contains(updated.(Model).View(), "Could not load history") {
		t.Error("an already hydrated engine is not a failure")
	}
}

func TestModel_EmptyTranscript(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})
	if !strings.Contains(m.View(), "No messages yet") {
		t.Error("empty transcript should show a hint")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeEngine{})
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("%v should quit", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v did not return tea.Quit", key)
		}
	}
}

func TestModel_LettersGoToInput(t *testing.T) {
	m := typeText(newTestModel(t, &fakeEngine{}), "jk")
	if m.textinput.Value() != "jk" {
		t.Errorf("input = %q, want %q", m.textinput.Value(), "jk")
	}
}

func TestBridge(t *testing.T) {
	b := newBridge()
	m := New(context.Background(), &fakeEngine{}, Options{})
	m.bridge = b

	go b.TranscriptChanged([]internal.Message{{ID: internal.LocalID(1), Role: internal.RoleUser, Content: "hi"}})
	msg := m.listen()()
	if got, ok := msg.(transcriptMsg); !ok || len(got) != 1 {
		t.Fatalf("listen() = %#v, want transcript notification", msg)
	}

	go b.LifecycleChanged(internal.StateSettled)
	if got, ok := m.listen()().(lifecycleMsg); !ok || internal.SendState(got) != internal.StateSettled {
		t.Fatalf("listen() = %#v, want lifecycle notification", got)
	}

	b.close()
	b.close()

	done := make(chan struct{})
	go func() {
		b.LifecycleChanged(internal.StateIdle)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notification after close blocked")
	}
	if msg := m.listen()(); msg != nil {
		t.Errorf("listen() after close = %#v, want nil", msg)
	}
}

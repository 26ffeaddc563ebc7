package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ServerErrorReply is the bot message shown in place of a reply that never arrived
const ServerErrorReply = "Server error. Try again."

// Outcome reports what Submit did with the text it was given
type Outcome int

const (
	// OutcomeRejected means nothing changed: the text was blank or a send was in flight
	OutcomeRejected Outcome = iota
	OutcomeSettled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeSettled:
		return "settled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Observer is notified after the engine commits a change
type Observer interface {
	TranscriptChanged(snapshot []Message)
	LifecycleChanged(state SendState)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnTranscript func(snapshot []Message)
	OnLifecycle  func(state SendState)
}

func (f ObserverFuncs) TranscriptChanged(snapshot []Message) {
	if f.OnTranscript != nil {
		f.OnTranscript(snapshot)
	}
}

func (f ObserverFuncs) LifecycleChanged(state SendState) {
	if f.OnLifecycle != nil {
		f.OnLifecycle(state)
	}
}

// Engine drives one conversation: it owns the transcript and the send
// lifecycle, and allows at most one submission in flight.
type Engine struct {
	client     Syncer
	token      SessionToken
	ephemeral  bool
	transcript *TranscriptStore

	mu        sync.Mutex
	state     SendState
	hydrated  bool
	lastErr   error
	nextLocal uint64

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewEngine resolves the session token from identity and returns an idle
// engine with an empty transcript. When session storage is unavailable the
// engine runs with a token that lives only as long as the process.
func NewEngine(ctx context.Context, identity *SessionIdentity, client Syncer) (*Engine, error) {
	if client == nil {
		return nil, errors.New("engine requires a message store client")
	}

	e := &Engine{
		client:     client,
		transcript: NewTranscriptStore(),
		observers:  make(map[int]Observer),
	}

	token, err := identity.GetOrCreateToken(ctx)
	switch {
	case err == nil:
		e.token = token
	case errors.Is(err, ErrStorageUnavailable):
		LogWarn("Session storage unavailable, using a temporary session: %v", err)
		token, err = GenerateToken()
		if err != nil {
			return nil, err
		}
		e.token = token
		e.ephemeral = true
	default:
		return nil, err
	}

	return e, nil
}

// Token returns the session token requests are scoped by
func (e *Engine) Token() SessionToken {
	return e.token
}

// Ephemeral reports whether the token will be lost when the process exits
func (e *Engine) Ephemeral() bool {
	return e.ephemeral
}

// Snapshot returns a copy of the transcript
func (e *Engine) Snapshot() []Message {
	return e.transcript.Snapshot()
}

// State returns the current send lifecycle state
func (e *Engine) State() SendState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the cause of the most recent failed send or hydration
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Subscribe registers o for change notifications until the returned func is called
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = o
	e.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.obsMu.Lock()
			delete(e.observers, id)
			e.obsMu.Unlock()
		})
	}
}

// Submit sends text to the message store. The user's message is appended
// before the request is made and is never retracted; a failed request is
// answered with a synthesized error reply instead of an error return.
func (e *Engine) Submit(ctx context.Context, text string) Outcome {
	content := strings.TrimSpace(text)

	e.mu.Lock()
	if content == "" || e.state == StatePending {
		state := e.state
		e.mu.Unlock()
		LogDebug("Submit rejected (state %s)", state)
		return OutcomeRejected
	}
	e.transcript.Append(Message{ID: e.localIDLocked(), Role: RoleUser, Content: content})
	e.state = StatePending
	snapshot := e.transcript.Snapshot()
	e.mu.Unlock()

	e.notify(snapshot, StatePending)

	reply, err := e.client.PostMessage(ctx, e.token, content)

	e.mu.Lock()
	outcome := OutcomeSettled
	if err != nil {
		LogError("Failed to send message: %v", err)
		e.transcript.Append(Message{
			ID:      e.localIDLocked(),
			Role:    RoleBot,
			Content: ServerErrorReply,
			IsError: true,
		})
		e.lastErr = err
		e.state = StateFailed
		outcome = OutcomeFailed
	} else {
		e.transcript.Append(reply)
		e.lastErr = nil
		e.state = StateSettled
	}
	final := e.state
	snapshot = e.transcript.Snapshot()
	e.state = StateIdle
	e.mu.Unlock()

	e.notify(snapshot, final)
	e.notifyLifecycle(StateIdle)
	return outcome
}

// Hydrate replaces the transcript with the stored history. It runs at most
// once per engine; later calls return ErrAlreadyHydrated. On failure the
// transcript is left as it was. Submissions are not held back while it runs,
// so a message sent before the history arrives is overwritten by it.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	if e.hydrated {
		e.mu.Unlock()
		return ErrAlreadyHydrated
	}
	e.hydrated = true
	e.mu.Unlock()

	messages, err := e.client.FetchHistory(ctx, e.token)
	if err != nil {
		LogWarn("Failed to load history: %v", err)
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return fmt.Errorf("failed to load history: %w", err)
	}

	e.mu.Lock()
	e.transcript.ReplaceAll(messages)
	snapshot := e.transcript.Snapshot()
	e.mu.Unlock()

	LogInfo("Loaded %d messages from history", len(messages))
	e.notifyTranscript(snapshot)
	return nil
}

func (e *Engine) localIDLocked() MessageID {
	e.nextLocal++
	return LocalID(e.nextLocal)
}

func (e *Engine) subscribers() []Observer {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	out := make([]Observer, 0, len(e.observers))
	for _, o := range e.observers {
		out = append(out, o)
	}
	return out
}

func (e *Engine) notify(snapshot []Message, state SendState) {
	e.notifyTranscript(snapshot)
	e.notifyLifecycle(state)
}

func (e *Engine) notifyTranscript(snapshot []Message) {
	for _, o := range e.subscribers() {
		o.TranscriptChanged(copyMessages(snapshot))
	}
}

func (e *Engine) notifyLifecycle(state SendState) {
	for _, o := range e.subscribers() {
		o.LifecycleChanged(state)
	}
}

func copyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

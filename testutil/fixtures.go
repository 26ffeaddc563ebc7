package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// SessionHeader is the header the message store scopes history by
const SessionHeader = "X-Session-Id"

// StoredMessage is a message as the fake message store persists it
type StoredMessage struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// RecordedRequest captures what the client sent
type RecordedRequest struct {
	Method    string
	Path      string
	SessionID string
	Body      string
}

type cannedResponse struct {
	status int
	body   string
}

// MessageStore is an in-process fake of the /chatmessages/ endpoint. By
// default it stores the user message, then a bot reply built by Reply.
type MessageStore struct {
	// Reply builds the bot reply for a submitted message
	Reply func(content string) string

	mu       sync.Mutex
	nextID   int
	messages []StoredMessage
	requests []RecordedRequest
	history  *cannedResponse
	post     *cannedResponse
	gate     chan struct{}
	server   *httptest.Server
}

// NewMessageStore starts a fake message store that is shut down with the test
func NewMessageStore(t *testing.T) *MessageStore {
	t.Helper()
	s := &MessageStore{
		Reply:  func(content string) string { return "echo: " + content },
		nextID: 1,
	}

	r := chi.NewRouter()
	r.Get("/chatmessages/", s.handleList)
	r.Post("/chatmessages/", s.handleCreate)
	s.server = httptest.NewServer(r)

	t.Cleanup(s.Close)
	return s
}

// URL returns the base URL of the fake store
func (s *MessageStore) URL() string {
	return s.server.URL
}

// Close releases blocked requests and stops the server
func (s *MessageStore) Close() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
	s.server.Close()
}

// Seed stores a message for sessionID and returns its id
func (s *MessageStore) Seed(sessionID, role, content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(sessionID, role, content)
}

// Messages returns what the store holds for sessionID
func (s *MessageStore) Messages(sessionID string) []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredMessage
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

// Requests returns the requests received so far
func (s *MessageStore) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests used method
func (s *MessageStore) CountRequests(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// SetHistoryResponse makes GET answer with a fixed status and body
func (s *MessageStore) SetHistoryResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = &cannedResponse{status: status, body: body}
}

// SetPostResponse makes POST answer with a fixed status and body
func (s *MessageStore) SetPostResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.post = &cannedResponse{status: status, body: body}
}

// BlockPosts holds POST requests until the returned release func is called
func (s *MessageStore) BlockPosts() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				close(gate)
				s.gate = nil
			}
			s.mu.Unlock()
		})
	}
}

func (s *MessageStore) storeLocked(sessionID, role, content string) int {
	id := s.nextID
	s.nextID++
	s.messages = append(s.messages, StoredMessage{
		ID:        id,
		Content:   content,
		Role:      role,
		SessionID: sessionID,
	})
	return id
}

func (s *MessageStore) record(r *http.Request, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		SessionID: r.Header.Get(SessionHeader),
		Body:      body,
	})
}

func (s *MessageStore) handleList(w http.ResponseWriter, r *http.Request) {
	s.record(r, "")

	s.mu.Lock()
	canned := s.history
	s.mu.Unlock()
	if canned != nil {
		writeRaw(w, canned.status, canned.body)
		return
	}

	messages := s.Messages(r.Header.Get(SessionHeader))
	if messages == nil {
		messages = []StoredMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *MessageStore) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.record(r, "")
		writeRaw(w, http.StatusUnprocessableEntity, `{"detail":"invalid body"}`)
		return
	}
	body, _ := json.Marshal(req)
	s.record(r, string(body))

	s.mu.Lock()
	gate := s.gate
	canned := s.post
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if canned != nil {
		writeRaw(w, canned.status, canned.body)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	s.mu.Lock()
	s.storeLocked(sessionID, "user", req.Content)
	s.storeLocked(sessionID, "bot", s.Reply(req.Content))
	bot := s.messages[len(s.messages)-1]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, bot)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

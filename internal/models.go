package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is one of the roles the message store speaks
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Label is the short name shown next to a message
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return "AI"
	default:
		return string(r)
	}
}

// IDOrigin tells a locally generated id apart from a server-assigned one
type IDOrigin int

const (
	OriginLocal IDOrigin = iota + 1
	OriginRemote
)

// MessageID is a tagged message identifier. Local and remote ids never
// compare equal, even when their values coincide.
type MessageID struct {
	Origin IDOrigin
	Value  string
}

// LocalID builds an id for a message created on this client
func LocalID(n uint64) MessageID {
	return MessageID{Origin: OriginLocal, Value: strconv.FormatUint(n, 10)}
}

// RemoteID builds an id assigned by the message store
func RemoteID(value string) MessageID {
	return MessageID{Origin: OriginRemote, Value: value}
}

// IsLocal reports whether the id was generated on this client
func (id MessageID) IsLocal() bool {
	return id.Origin == OriginLocal
}

// IsZero reports whether the id is unset
func (id MessageID) IsZero() bool {
	return id.Origin == 0 && id.Value == ""
}

func (id MessageID) String() string {
	switch id.Origin {
	case OriginLocal:
		return "local:" + id.Value
	case OriginRemote:
		return "remote:" + id.Value
	default:
		return id.Value
	}
}

// MarshalText encodes the id in its tagged form
func (id MessageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the tagged form produced by MarshalText
func (id *MessageID) UnmarshalText(text []byte) error {
	s := string(text)
	switch {
	case strings.HasPrefix(s, "local:"):
		*id = MessageID{Origin: OriginLocal, Value: strings.TrimPrefix(s, "local:")}
	case strings.HasPrefix(s, "remote:"):
		*id = MessageID{Origin: OriginRemote, Value: strings.TrimPrefix(s, "remote:")}
	default:
		return fmt.Errorf("invalid message id %q", s)
	}
	return nil
}

// Message is a single transcript entry
type Message struct {
	ID         MessageID `json:"id" yaml:"id"`
	Role       Role      `json:"role" yaml:"role"`
	Content    string    `json:"content" yaml:"content"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
	// IsError marks a reply synthesized by the client after a failed send
	IsError bool `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

// Transcript is a conversation as handed to exporters
type Transcript struct {
	SessionToken SessionToken `json:"session_token" yaml:"session_token"`
	APIBase      string       `json:"api_base" yaml:"api_base"`
	ExportedAt   time.Time    `json:"exported_at" yaml:"exported_at"`
	Ephemeral    bool         `json:"ephemeral,omitempty" yaml:"ephemeral,omitempty"`
	Messages     []Message    `json:"messages" yaml:"messages"`
}

// SendState is the lifecycle of the single outstanding submission
type SendState int

const (
	StateIdle SendState = iota
	StatePending
	StateSettled
	StateFailed
)

func (s SendState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SendState(%d)", int(s))
	}
}

// wireMessage is a message as the message store serializes it
type wireMessage struct {
	ID      json.RawMessage `json:"id"`
	Role    string          `json:"role"`
	Content string          `json:"content"`
}

// ParseHistory decodes a history response body: a JSON array of messages in
// chronological order.
func ParseHistory(data []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array of messages")
	}

	var raw []wireMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse history JSON: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, w := range raw {
		msg, err := w.toMessage()
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if seen[msg.ID.Value] {
			return nil, fmt.Errorf("message %d: duplicate id %s", i, msg.ID.Value)
		}
		seen[msg.ID.Value] = true
		messages = append(messages, msg)
	}

	return messages, nil
}

// ParseReply decodes the body returned for a submitted message. The reply
// must be authored by the bot.
func ParseReply(data []byte) (Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{}, fmt.Errorf("expected a JSON message object")
	}

	var w wireMessage
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Message{}, fmt.Errorf("failed to parse reply JSON: %w", err)
	}

	msg, err := w.toMessage()
	if err != nil {
		return Message{}, err
	}
	if msg.Role != RoleBot {
		return Message{}, fmt.Errorf("reply role is %q, want %q", msg.Role, RoleBot)
	}

	return msg, nil
}

func (w wireMessage) toMessage() (Message, error) {
	id, err := parseRemoteID(w.ID)
	if err != nil {
		return Message{}, err
	}

	role := Role(w.Role)
	if !role.Valid() {
		return Message{}, fmt.Errorf("invalid role %q", w.Role)
	}

	if strings.TrimSpace(w.Content) == "" {
		return Message{}, fmt.Errorf("message %s has empty content", id)
	}

	return Message{
		ID:      RemoteID(id),
		Role:    role,
		Content: w.Content,
	}, nil
}

// parseRemoteID accepts numeric and string ids and returns their canonical text
func parseRemoteID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("missing message id")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("invalid message id: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("missing message id")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("invalid message id %s: %w", trimmed, err)
	}
	return n.String(), nil
}

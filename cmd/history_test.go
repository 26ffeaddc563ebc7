package cmd

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/career-chat/testutil"
)

const fixtureToken = "5f0c2a9e-3b1d-4c7e-8a6f-1d2e3c4b5a69"

// seededSession prepares a state file holding fixtureToken and a server with
// a short conversation for it
func seededSession(t *testing.T) (statePath string, store *testutil.MessageStore) {
	t.Helper()
	dir := isolateEnv(t)
	statePath = filepath.Join(dir, "state.db")
	testutil.CreateStateFixture(t, statePath, fixtureToken)

	store = testutil.NewMessageStore(t)
	store.Seed(fixtureToken, "user", "What should I learn first?")
	store.Seed(fixtureToken, "bot", "Start with SQL and one scripting language.")
	store.Seed(fixtureToken, "user", "And after that?")
	store.Seed(fixtureToken, "bot", "Pick a cloud platform.")
	store.Seed("someone-else", "user", "not mine")
	return statePath, store
}

func TestHistoryCommand(t *testing.T) {
	statePath, store := seededSession(t)

	out, err := executeCommand(t, "", "history", "--state", statePath, "--api-base", store.URL())
	if err != nil {
		t.Fatalf("history error = %v", err)
	}

	for _, want := range []string{
		"Session: " + fixtureToken,
		"Messages: 4",
		"What should I learn first?",
		"Pick a cloud platform.",
		"[4/4]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "not mine") {
		t.Error("history leaked another session's messages")
	}

	reqs := store.Requests()
	if len(reqs) != 1 || reqs[0].SessionID != fixtureToken {
		t.Errorf("requests = %+v, want one GET scoped to %s", reqs, fixtureToken)
	}
}

func TestHistoryCommand_Limit(t *testing.T) {
	statePath, store := seededSession(t)

	out, err := executeCommand(t, "", "history", "-n", "1", "--state", statePath, "--api-base", store.URL())
	if err != nil {
		t.Fatalf("history error = %v", err)
	}

	if !strings.Contains(out, "3 earlier message(s)") {
		t.Errorf("limited output should note earlier messages:\n%s", out)
	}
	if strings.Contains(out, "What should I learn first?") {
		t.Errorf("limited output shows an old message:\n%s", out)
	}
	if !strings.Contains(out, "Pick a cloud platform.") {
		t.Errorf("limited output misses the latest message:\n%s", out)
	}
}

func TestHistoryCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(store *testutil.MessageStore)
		args  []string
		want  string
	}{
		{
			name:  "server error",
			setup: func(store *testutil.MessageStore) { store.SetHistoryResponse(http.StatusInternalServerError, "boom") },
			want:  "failed to load history",
		},
		{
			name:  "malformed history",
			setup: func(store *testutil.MessageStore) { store.SetHistoryResponse(http.StatusOK, `{"not":"a list"}`) },
			want:  "failed to load history",
		},
		{
			name: "negative limit",
			args: []string{"-n", "-2"},
			want: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statePath, store := seededSession(t)
			if tt.setup != nil {
				tt.setup(store)
			}

			args := append([]string{"history", "--state", statePath, "--api-base", store.URL()}, tt.args...)
			_, err := executeCommand(t, "", args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("history error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	isolateEnv(t)
	store := testutil.NewMessageStore(t)

	out, err := executeCommand(t, "", "history", "--ephemeral", "--api-base", store.URL())
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No messages yet") {
		t.Errorf("empty history hint missing:\n%s", out)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected string
	}{
		{
			name:     "short text",
			text:     "Hello world",
			width:    80,
			expected: "Hello world",
		},
		{
			name:     "exact width",
			text:     "12345",
			width:    5,
			expected: "12345",
		},
		{
			name:     "wrap long line",
			text:     "Learn SQL then Python then a cloud platform",
			width:    15,
			expected: "Learn SQL then\nPython then a\ncloud platform",
		},
		{
			name:     "multiple lines",
			text:     "Line 1\nLine 2",
			width:    80,
			expected: "Line 1\nLine 2",
		},
		{
			name:     "word longer than width",
			text:     "a verylongwordthatcannotfit b",
			width:    10,
			expected: "a\nverylongwordthatcannotfit\nb",
		},
		{
			name:     "empty text",
			text:     "",
			width:    80,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := wrapText(tt.text, tt.width)
			if result != tt.expected {
				t.Errorf("wrapText() = %q, want %q", result, tt.expected)
			}
		})
	}
}

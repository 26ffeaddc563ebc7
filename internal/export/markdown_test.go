package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/career-chat/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	withError := internal.CreateTestTranscript(1)
	withError.Messages = append(withError.Messages, internal.CreateTestErrorReply(2))

	withMarkup := internal.CreateTestTranscript(0)
	withMarkup.Messages = []internal.Message{
		{ID: internal.RemoteID("1"), Role: internal.RoleBot, Content: "Focus on **Go** first"},
	}

	tests := []struct {
		name       string
		transcript *internal.Transcript
		want       []string
		notWant    []string
	}{
		{
			name:       "basic transcript",
			transcript: internal.CreateTestTranscript(2),
			want: []string{
				"# Career Mentor conversation",
				"**Session:** 0b7d4c1e-6f2a-4a53-9d1c-2f8e5a7b9c10",
				"**Messages:** 2",
				"**You:** (2024-01-15 10:00)",
				"**AI:** (2024-01-15 10:01)",
				"Question 1?",
				"Answer 1.",
			},
		},
		{
			name:       "empty transcript",
			transcript: internal.CreateTestTranscript(0),
			want:       []string{"**Messages:** 0"},
			notWant:    []string{"**You:**"},
		},
		{
			name:       "error reply labelled",
			transcript: withError,
			want:       []string{"**AI (error):**", internal.ServerErrorReply},
		},
		{
			name:       "content markup escaped",
			transcript: withMarkup,
			want:       []string{"\\*\\*Go\\*\\*"},
			notWant:    []string{"**Go**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			if err := exporter.Export(tt.transcript, &buf); err != nil {
				t.Fatalf("MarkdownExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(output, notWantStr) {
					t.Errorf("Output should not contain %q, got:\n%s", notWantStr, output)
				}
			}
		})
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "basic text",
			input: "Hello world",
			want:  []string{"Hello world"},
		},
		{
			name:    "markdown bold",
			input:   "This is **bold** text",
			want:    []string{"\\*\\*bold\\*\\*"},
			notWant: []string{"**bold**"},
		},
		{
			name:    "markdown underline",
			input:   "This is __underlined__ text",
			want:    []string{"\\_\\_underlined\\_\\_"},
			notWant: []string{"__underlined__"},
		},
		{
			name:  "code block preserved",
			input: "```go\npackage main\n```",
			want:  []string{"```go", "package main", "```"},
		},
		{
			name:    "mixed content",
			input:   "Regular text **bold** and ```code```",
			want:    []string{"\\*\\*bold\\*\\*", "```code```"},
			notWant: []string{"**bold**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeMarkdown(tt.input)
			for _, wantStr := range tt.want {
				if !strings.Contains(got, wantStr) {
					t.Errorf("escapeMarkdown() should contain %q, got: %s", wantStr, got)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(got, notWantStr) {
					t.Errorf("escapeMarkdown() should not contain %q, got: %s", notWantStr, got)
				}
			}
		})
	}
}

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/career-chat/internal"
)

const timestampLayout = "2006-01-02 15:04"

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export writes the transcript as a Markdown document
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Career Mentor conversation\n\n")
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", transcript.SessionToken)
	if transcript.APIBase != "" {
		_, _ = fmt.Fprintf(w, "**Server:** %s  \n", transcript.APIBase)
	}
	if !transcript.ExportedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Exported:** %s  \n", transcript.ExportedAt.Format(timestampLayout))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range transcript.Messages {
		label := msg.Role.Label()
		if msg.IsError {
			label += " (error)"
		}

		timestamp := ""
		if !msg.ReceivedAt.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.ReceivedAt.Format(timestampLayout))
		}

		content := escapeMarkdown(msg.Content)
		_, err := fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, content)
		if err != nil {
			return fmt.Errorf("failed to write message %s: %w", msg.ID, err)
		}

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

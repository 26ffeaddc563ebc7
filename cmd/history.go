package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/career-chat/internal"
	"github.com/spf13/cobra"
)

var limit int

var (
	// Styles for transcript output
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	botMessageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true).
			Padding(0, 1)

	failedMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your conversation history",
	Long:  `Load the conversation stored for this session and print it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if limit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		s, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		err = internal.ShowProgress(cmd.Context(), "Loading history", func() error {
			return s.engine.Hydrate(cmd.Context())
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		messages := s.engine.Snapshot()
		displaySessionHeader(out, s.engine.Token(), len(messages))

		// Most recent messages win when limited
		shown := messages
		if limit > 0 && limit < len(messages) {
			shown = messages[len(messages)-limit:]
			fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d earlier message(s))", len(messages)-limit)))
			fmt.Fprintln(out)
		}

		offset := len(messages) - len(shown)
		for i, msg := range shown {
			displayMessage(out, offset+i+1, msg, len(messages))
		}

		if len(messages) == 0 {
			fmt.Fprintln(out, sessionMetaStyle.Render("No messages yet. Start with 'career-chat chat'."))
		}
		return nil
	},
}

func displaySessionHeader(w io.Writer, token internal.SessionToken, count int) {
	fmt.Fprintln(w, sessionHeaderStyle.Render("💬 Career Mentor"))

	metaParts := []string{
		fmt.Sprintf("Session: %s", token),
		fmt.Sprintf("Messages: %d", count),
	}
	fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var roleStyle lipgloss.Style
	var roleLabel string

	switch {
	case msg.IsError:
		roleStyle = failedMessageStyle
		roleLabel = "⚠ " + msg.Role.Label()
	case msg.Role == internal.RoleUser:
		roleStyle = userMessageStyle
		roleLabel = "👤 " + msg.Role.Label()
	default:
		roleStyle = botMessageStyle
		roleLabel = "🤖 " + msg.Role.Label()
	}

	header := roleStyle.Render(roleLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !msg.ReceivedAt.IsZero() {
		header += " " + timestampStyle.Render(msg.ReceivedAt.Format("15:04"))
	}
	fmt.Fprintln(w, header)

	content := wrapText(strings.TrimSpace(msg.Content), 80)
	fmt.Fprintln(w, messageContentStyle.Render(content))
	fmt.Fprintln(w)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N messages")
}

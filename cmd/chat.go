package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/career-chat/internal"
	"github.com/iksnae/career-chat/internal/tui"
	"github.com/spf13/cobra"
)

var plain bool

const lineModeHelp = `Type a message and press Enter to send it.
  /history  show the whole conversation
  /help     show this help
  /quit     leave (also /exit or Ctrl+D)`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation",
	Long: `Open the chat. On a terminal this is a full-screen view; with --plain, or
when input or output is redirected, messages are read and written line by line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if plain || !internal.IsTerminal(os.Stdin) || !internal.IsTerminal(os.Stdout) {
			return runLineChat(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
		}

		// Logs would corrupt the full-screen view
		closeLog := redirectLogs(cfg)
		defer closeLog()

		return tui.Run(ctx, s.engine, tui.Options{
			Ephemeral: s.ephemeral(),
			Markdown:  true,
		})
	},
}

// runLineChat is the chat loop for pipes and dumb terminals
func runLineChat(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, sessionHeaderStyle.Render("💬 Career Mentor"))
	if s.ephemeral() {
		fmt.Fprintln(out, sessionMetaStyle.Render("Temporary session, history will not be kept"))
	}

	if err := s.engine.Hydrate(ctx); err != nil {
		fmt.Fprintln(out, failedMessageStyle.Render("Could not load history: "+err.Error()))
	}
	printMessages(out, s.engine.Snapshot())
	fmt.Fprintln(out, sessionMetaStyle.Render("Type /help for commands."))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	// Reading happens off the loop so an interrupt is noticed while waiting
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			break
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, lineModeHelp)
			continue
		case "/history":
			printMessages(out, s.engine.Snapshot())
			continue
		}

		before := len(s.engine.Snapshot())
		outcome := s.engine.Submit(ctx, line)
		internal.LogDebug("Submit finished: %s", outcome)

		// The user's own line is already on screen
		for _, msg := range s.engine.Snapshot()[before:] {
			if msg.Role == internal.RoleBot {
				printMessage(out, msg)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func printMessages(w io.Writer, messages []internal.Message) {
	for _, msg := range messages {
		printMessage(w, msg)
	}
}

func printMessage(w io.Writer, msg internal.Message) {
	style := botMessageStyle
	switch {
	case msg.IsError:
		style = failedMessageStyle
	case msg.Role == internal.RoleUser:
		style = userMessageStyle
	}

	header := style.Render(msg.Role.Label())
	if !msg.ReceivedAt.IsZero() {
		header += " " + timestampStyle.Render(msg.ReceivedAt.Format("15:04"))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, messageContentStyle.Render(wrapText(msg.Content, 80)))
}

// redirectLogs sends log output to a file beside the state file when verbose,
// and discards it otherwise. The returned func restores stderr.
func redirectLogs(c *internal.Config) func() {
	if !verbose || c.StatePath == "" {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }
	}

	logPath := filepath.Join(filepath.Dir(c.StatePath), "chat.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }
	}

	internal.SetLogOutput(f)
	return func() {
		internal.SetLogOutput(os.Stderr)
		_ = f.Close()
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&plain, "plain", false, "Read and write plain lines instead of the full-screen view")
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/iksnae/career-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	apiBase    string
	statePath  string
	timeout    time.Duration
	ephemeral  bool
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is resolved before any subcommand runs
	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "career-chat",
	Short: "Chat with the Career Mentor from your terminal",
	Long: `A terminal client for the Career Mentor chat service.

Your conversation is tied to a session token that is created on first use and
kept in a local state file, so history survives restarts.

Features:
  • Full-screen chat with markdown-rendered replies
  • Line mode for pipes and scripts
  • Print or export your conversation history (JSONL, Markdown, YAML, JSON)
  • Health check for configuration, session storage and the server

Quick Start:
  career-chat chat                        # Start chatting
  career-chat history -n 10               # Show the last 10 messages
  career-chat export --format md -o chat.md

Configuration is read from $XDG_CONFIG_HOME/career-chat/config.yaml (or
config.toml), a .env file, CAREER_CHAT_* environment variables and flags.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers explicitly set flags over the file and environment settings
func loadConfig(cmd *cobra.Command) (*internal.Config, error) {
	c, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api-base") {
		c.APIBase = apiBase
	}
	if flags.Changed("state") {
		c.StatePath = statePath
	}
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	if flags.Changed("ephemeral") {
		c.Ephemeral = ephemeral
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	internal.LogDebug("Using server %s (timeout %s)", c.APIBase, c.Timeout)
	return c, nil
}

// session bundles an engine with the resources it holds
type session struct {
	engine *internal.Engine
	client *internal.SyncClient
	store  *internal.SQLiteTokenStore
}

func (s *session) ephemeral() bool {
	return s.store == nil || s.engine.Ephemeral()
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		internal.LogWarn("Failed to close state file: %v", err)
	}
}

// openSession builds the conversation engine described by c
func openSession(ctx context.Context, c *internal.Config) (*session, error) {
	s := &session{client: internal.NewSyncClient(c.APIBase, c.Timeout)}

	var tokens internal.TokenStore
	if c.Ephemeral {
		tokens = internal.NewMemoryTokenStore()
	} else {
		s.store = internal.NewSQLiteTokenStore(c.StatePath)
		tokens = s.store
	}

	engine, err := internal.NewEngine(ctx, internal.NewSessionIdentity(tokens), s.client)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	s.engine = engine

	if s.ephemeral() && !c.Ephemeral {
		internal.PrintWarning("Session storage is unavailable; this conversation will not be resumable")
	}
	return s, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/career-chat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", internal.DefaultAPIBase, "Base URL of the chat server")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path to the state file holding the session token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", internal.DefaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Use a temporary session that is not saved")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

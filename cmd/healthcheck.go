package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/career-chat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that career-chat can reach its storage and server",
	Long: `Check the health of career-chat by verifying:
  • Configuration
  • Session storage (state file and token)
  • Chat server reachability and history

This command is useful for debugging connection or storage issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, sectionStyle.Render("🔍 Career Chat Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking configuration..."))
		fmt.Fprintln(out, successStyle.Render("✅ Configuration is valid"))
		if healthcheckDetails {
			source := cfg.Source
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(out, "   Config file: %s\n", source)
			fmt.Fprintf(out, "   Server: %s\n", cfg.APIBase)
			fmt.Fprintf(out, "   Timeout: %s\n", cfg.Timeout)
		}
		fmt.Fprintln(out)

		// Step 2: Session storage
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking session storage..."))
		var tokens internal.TokenStore
		if cfg.Ephemeral {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Ephemeral mode, session storage not used"))
			tokens = internal.NewMemoryTokenStore()
		} else {
			store := internal.NewSQLiteTokenStore(cfg.StatePath)
			defer store.Close()
			tokens = store
		}

		token, err := internal.NewSessionIdentity(tokens).GetOrCreateToken(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Session storage is unavailable"))
			fmt.Fprintf(out, "   %v\n", err)
			return fmt.Errorf("healthcheck failed: %w", err)
		}
		if !cfg.Ephemeral {
			fmt.Fprintln(out, successStyle.Render("✅ Session token available"))
		}
		if healthcheckDetails {
			fmt.Fprintf(out, "   State file: %s\n", cfg.StatePath)
			fmt.Fprintf(out, "   Token: %s\n", token)
		}
		fmt.Fprintln(out)

		// Step 3: Chat server
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting chat server..."))
		client := internal.NewSyncClient(cfg.APIBase, cfg.Timeout)
		start := time.Now()
		messages, err := client.FetchHistory(ctx, token)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to load history from the server"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Error details:")
			fmt.Fprintln(out, err)
			return fmt.Errorf("healthcheck failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Server reachable, %d message(s) in history", len(messages))))
		if healthcheckDetails {
			fmt.Fprintf(out, "   Endpoint: %s\n", client.Endpoint())
			fmt.Fprintf(out, "   Round trip: %s\n", time.Since(start).Round(time.Millisecond))
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, successStyle.Render("✅ All checks passed"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed information")
}

package cmd

import (
	"fmt"

	"github.com/iksnae/career-chat/internal"
	"github.com/spf13/cobra"
)

var tokenOnly bool

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the session token and where it is stored",
	Long: `Print the session token this client sends as X-Session-Id, creating it on
first use. The token is what ties your history to you on the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		if tokenOnly {
			fmt.Fprintln(out, s.engine.Token())
			return nil
		}

		state := cfg.StatePath
		if s.ephemeral() {
			state = "(none, temporary session)"
		}
		source := cfg.Source
		if source == "" {
			source = "(defaults)"
		}

		fmt.Fprintf(out, "%s %s\n", sessionMetaStyle.Render("Token:     "), s.engine.Token())
		fmt.Fprintf(out, "%s %s\n", sessionMetaStyle.Render("State file:"), state)
		fmt.Fprintf(out, "%s %t\n", sessionMetaStyle.Render("Ephemeral: "), s.ephemeral())
		fmt.Fprintf(out, "%s %s\n", sessionMetaStyle.Render("Server:    "), s.client.Endpoint())
		fmt.Fprintf(out, "%s %s\n", sessionMetaStyle.Render("Config:    "), source)

		internal.LogDebug("Session details printed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().BoolVarP(&tokenOnly, "quiet", "q", false, "Print only the token")
}

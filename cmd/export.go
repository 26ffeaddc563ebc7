package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/career-chat/internal"
	"github.com/iksnae/career-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputFile string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your conversation to a file",
	Long: `Export the conversation stored for this session in one of several formats
(jsonl, md, yaml, json).

Without --output the export is written to standard output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Create exporter first so a bad format fails before any I/O
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
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

		transcript := &internal.Transcript{
			SessionToken: s.engine.Token(),
			APIBase:      cfg.APIBase,
			ExportedAt:   time.Now(),
			Ephemeral:    s.ephemeral(),
			Messages:     s.engine.Snapshot(),
		}

		if outputFile == "" || outputFile == "-" {
			return exporter.Export(transcript, cmd.OutOrStdout())
		}

		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", outputFile, err)
		}

		if err := exporter.Export(transcript, file); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to export conversation: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to close file %s: %w", outputFile, err)
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d message(s) written to %s", len(transcript.Messages), outputFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
}

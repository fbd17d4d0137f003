package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Write a session document to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOwner(); err != nil {
			return err
		}
		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		session, err := svc.GetSession(cmd.Context(), args[0], ownerID)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		return exportSession(cmd.OutOrStdout(), session, exportFormat)
	},
}

func exportSession(w io.Writer, s *domain.Session, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Record())
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(s.Record())
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or yaml")
	rootCmd.AddCommand(exportCmd)
}

package main

import (
	"fmt"
	"io"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	userRoleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	modelRoleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	imageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
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
		renderTranscript(cmd.OutOrStdout(), session)
		return nil
	},
}

func renderTranscript(w io.Writer, s *domain.Session) {
	fmt.Fprintln(w, headerStyle.Render(domain.Title(s.FirstUserText())))
	fmt.Fprintln(w, idStyle.Render(s.ID))
	for _, t := range s.History {
		style := modelRoleStyle
		if t.Role() == domain.RoleUser {
			style = userRoleStyle
		}
		fmt.Fprintf(w, "\n%s\n", style.Render(string(t.Role())))
		for _, p := range t.Parts() {
			fmt.Fprintln(w, p.Text)
		}
		if u, ok := t.(domain.UserTurn); ok && u.Image != "" {
			fmt.Fprintln(w, imageStyle.Render("[image] "+u.Image))
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}

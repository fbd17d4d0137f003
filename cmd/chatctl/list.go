package main

import (
	"fmt"
	"io"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's sessions",
	Long:  `List the session summaries in a user's index, in creation order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOwner(); err != nil {
			return err
		}
		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		chats, err := svc.ListSessions(cmd.Context(), ownerID)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		renderSummaries(cmd.OutOrStdout(), ownerID, chats)
		return nil
	},
}

func renderSummaries(w io.Writer, owner string, chats []domain.SessionSummary) {
	fmt.Fprintln(w, headerStyle.Render("Sessions of "+owner))
	if len(chats) == 0 {
		fmt.Fprintln(w, dateStyle.Render("  no sessions"))
		return
	}
	for i, c := range chats {
		fmt.Fprintf(w, "%3d. %s\n", i+1, titleStyle.Render(c.Title))
		fmt.Fprintf(w, "     %s  %s\n", idStyle.Render(c.ID), dateStyle.Render(c.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintf(w, "\n%s session(s)\n", countStyle.Render(fmt.Sprint(len(chats))))
}

func init() {
	rootCmd.AddCommand(listCmd)
}

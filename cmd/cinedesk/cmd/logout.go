package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cinedesk/cinedesk/internal/audit"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear local credentials",
	Long: `Sign out of the backend.

Local credentials are cleared first, so the session ends even when the
backend cannot be reached.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	snap := a.Sessions.Snapshot()
	if !snap.Authenticated() {
		fmt.Println("Not signed in.")
		return nil
	}
	actor := ""
	if snap.User != nil {
		actor = snap.User.ID
	}

	a.Sessions.Logout(cmd.Context())
	a.Audit.Record(audit.Event{Kind: audit.KindLogout, Actor: actor, Outcome: "ok"})

	fmt.Println("Signed out.")
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiRemote bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE:  runWhoami,
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "revalidate the session against the backend first")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Sessions.Initialize(cmd.Context()); err != nil {
		return err
	}
	if whoamiRemote {
		if _, err := a.Sessions.FetchProfile(cmd.Context()); err != nil {
			return fmt.Errorf("revalidate session: %w", err)
		}
	}

	snap := a.Sessions.Snapshot()
	if !snap.Authenticated() || snap.User == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("User:  %s (%s)\n", snap.User.Name, snap.User.ID)
	fmt.Printf("Phone: %s\n", snap.User.Phone)
	fmt.Printf("Role:  %s\n", snap.Role())
	if snap.SuperAdmin() {
		fmt.Println("All permission checks are bypassed for this role.")
	}
	return nil
}

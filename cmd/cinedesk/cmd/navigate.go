package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <path>",
	Short: "Run the navigation guard against a route",
	Long: `Run the navigation guard against a console route and report where
the navigation settles.

Examples:
  cinedesk navigate /admin/movies
  cinedesk navigate /admin/users/create`,
	Args: cobra.ExactArgs(1),
	RunE: runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

func runNavigate(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	target := args[0]
	settled, err := a.Navigate(cmd.Context(), target)
	if err != nil {
		return err
	}
	if settled == target {
		fmt.Printf("%s: allowed\n", target)
	} else {
		fmt.Printf("%s: redirected to %s\n", target, settled)
	}
	return nil
}

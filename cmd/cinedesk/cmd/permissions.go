package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cinedesk/cinedesk/internal/domain/rbac"
)

var (
	checkRequireAll bool
	checkRemote     bool
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Show or check the current permission grant",
	RunE:  runPermissionsList,
}

var permissionsCheckCmd = &cobra.Command{
	Use:   "check <permission> [permission...]",
	Short: "Check permissions against the current grant",
	Long: `Check one or more "<module>.<action>" permissions.

A single permission is matched exactly. Multiple permissions pass when
any of them is granted, or all of them with --all. With --remote the
backend evaluates the check instead of the local grant.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPermissionsCheck,
}

func init() {
	permissionsCheckCmd.Flags().BoolVar(&checkRequireAll, "all", false, "require every listed permission")
	permissionsCheckCmd.Flags().BoolVar(&checkRemote, "remote", false, "evaluate on the backend")
	permissionsCmd.AddCommand(permissionsCheckCmd)
	rootCmd.AddCommand(permissionsCmd)
}

func runPermissionsList(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Sessions.Initialize(cmd.Context()); err != nil {
		return err
	}
	if !a.Sessions.Snapshot().Authenticated() {
		return fmt.Errorf("not signed in")
	}
	if err := a.Permissions.InitializeForSession(cmd.Context()); err != nil {
		return err
	}

	snap := a.Permissions.Snapshot()
	if snap.SuperAdmin || a.Sessions.Snapshot().SuperAdmin() {
		fmt.Println("superadmin: every permission is granted")
		return nil
	}

	fmt.Printf("Role: %s\n", snap.Role)

	byModule := snap.Set.ByModule()
	if len(byModule) == 0 {
		// Grants without detail metadata: print the flat list.
		for _, p := range snap.Set.List() {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}

	modules := make([]string, 0, len(byModule))
	for m := range byModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		fmt.Printf("%s:\n", m)
		for _, d := range byModule[m] {
			fmt.Printf("  %s\n", d.Permission)
		}
	}
	return nil
}

func runPermissionsCheck(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Sessions.Initialize(cmd.Context()); err != nil {
		return err
	}
	if !a.Sessions.Snapshot().Authenticated() {
		return fmt.Errorf("not signed in")
	}

	for _, p := range args {
		if !validPermissionID(p) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not a known <module>.<action> identifier\n", p)
		}
	}

	var granted bool
	if checkRemote {
		granted = a.Permissions.CheckRemote(cmd.Context(), args, checkRequireAll)
	} else {
		if err := a.Permissions.InitializeForSession(cmd.Context()); err != nil {
			return err
		}
		if len(args) == 1 {
			granted = a.Permissions.Has(args[0])
		} else if checkRequireAll {
			granted = a.Permissions.HasAll(args)
		} else {
			granted = a.Permissions.HasAny(args)
		}
	}

	if granted {
		fmt.Println("granted")
		return nil
	}
	fmt.Println("denied")
	return fmt.Errorf("permission denied")
}

// validPermissionID reports whether p names a catalog module and action.
func validPermissionID(p string) bool {
	for _, m := range rbac.Modules() {
		for _, a := range []rbac.Action{rbac.ActionView, rbac.ActionCreate, rbac.ActionEdit, rbac.ActionDelete, rbac.ActionManage} {
			if rbac.ID(m, a) == p {
				return true
			}
		}
	}
	return false
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cinedesk/cinedesk/internal/audit"
	"github.com/cinedesk/cinedesk/internal/session"
)

var (
	loginPhone    string
	loginPassword string
	loginRemember bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in to the backend with phone and password.

The password is read interactively unless --password is given. On
success the session is persisted locally and reused by later commands.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginPhone, "phone", "", "account phone number")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "ask the backend for a long-lived session")
	_ = loginCmd.MarkFlagRequired("phone")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	password := loginPassword
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	user, err := a.Sessions.Login(cmd.Context(), session.Credentials{
		Phone:    loginPhone,
		Password: password,
		Remember: loginRemember,
	})
	if err != nil {
		a.Audit.Record(audit.Event{Kind: audit.KindLogin, Actor: loginPhone, Outcome: "failed"})
		return fmt.Errorf("login failed: %w", err)
	}
	a.Audit.Record(audit.Event{Kind: audit.KindLogin, Actor: user.ID, Outcome: "ok"})

	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.EffectiveRole())
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	// Piped input (scripts, tests).
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wardan/internal/auth"
)

func newLoginCommand(w commandWiring) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("--username is required")
			}
			password, err := w.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			creds, err := rt.auth.Login(cmd.Context(), rt.client, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(w.stdout, "logged in as %s (%s)\n", creds.Username, roleOrDash(creds.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	return cmd
}

func newLogoutCommand(w commandWiring) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(w.stdout, "logged out")
			return nil
		},
	}
}

func newWhoamiCommand(w commandWiring) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := w.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			creds, err := rt.auth.Credentials(cmd.Context())
			if errors.Is(err, auth.ErrNotAuthenticated) {
				fmt.Fprintln(w.stdout, "not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			if remote {
				user, err := rt.client.Me(cmd.Context(), creds.Token)
				if err != nil {
					return err
				}
				creds.Username, creds.Role = user.Username, user.Role
			}
			status := "valid"
			if !rt.auth.IsAuthenticated() {
				status = "expired"
			}
			fmt.Fprintf(w.stdout, "%s (%s), token %s\n", creds.Username, roleOrDash(creds.Role), status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the backend instead of trusting the stored values")
	return cmd
}

func roleOrDash(role string) string {
	if strings.TrimSpace(role) == "" {
		return "-"
	}
	return role
}

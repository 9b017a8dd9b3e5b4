// ABOUTME: login, logout, and status commands
// ABOUTME: Passwords are read without echo when stdin is a terminal

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if username == "" {
				fmt.Fprint(out, "Username: ")
				line, err := readLine(in)
				if err != nil {
					return fmt.Errorf("reading username: %w", err)
				}
				username = line
			}

			password, err := readPassword(cmd.InOrStdin(), in, out, passwordStdin)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			if err := a.api.Auth.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			success(out, "Logged in as %s", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// readPassword prompts without echo on a terminal, else reads one line.
func readPassword(raw io.Reader, buffered *bufio.Reader, out io.Writer, fromStdin bool) (string, error) {
	if f, ok := raw.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(buffered)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.api.Auth.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:      %s\n", a.cfg.API.BaseURL)
			fmt.Fprintf(out, "Credentials: %s\n", a.cfg.Credentials.Backend)
			if !st.LoggedIn {
				color.New(color.FgYellow).Fprintln(out, "Not logged in")
				return nil
			}

			color.New(color.FgGreen).Fprintln(out, "Logged in")
			if !st.HasRefreshToken {
				color.New(color.FgYellow).Fprintln(out, "No refresh token: the session ends when the access token expires")
			}
			if c := st.Claims; c != nil {
				if c.Subject != "" {
					fmt.Fprintf(out, "User:        %s\n", c.Subject)
				}
				if !c.ExpiresAt.IsZero() {
					state := "expires in " + since(c.ExpiresAt)
					if c.Expired(time.Now()) {
						state = "expired, will refresh on next request"
					}
					fmt.Fprintf(out, "Access token %s\n", state)
				}
			}
			return nil
		},
	}
}

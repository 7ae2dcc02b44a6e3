package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cbir/internal/app"
)

var errNoSession = errors.New("login did not issue a session token")

type credentialFlags struct {
	username string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Account password (defaults to CBIR_PASSWORD)")
}

func (f *credentialFlags) resolvedPassword() string {
	if f.password != "" {
		return f.password
	}
	return passwordFromEnv()
}

type sessionOutput struct {
	LoggedIn bool   `json:"logged_in"`
	Message  string `json:"message,omitempty"`
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				sess, err := a.Account.Login(cmd.Context(), creds.username, creds.resolvedPassword())
				if err != nil {
					return err
				}
				if !sess.Present() {
					return errNoSession
				}
				message := "Logged in as " + strings.TrimSpace(creds.username)
				if ctx.jsonOutput() {
					return writeJSON(cmd, sessionOutput{LoggedIn: true, Message: message})
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	creds.register(cmd)
	return cmd
}

func newSignupCommand(ctx *commandContext) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				message, err := a.Account.Signup(cmd.Context(), creds.username, creds.resolvedPassword())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sessionOutput{Message: message})
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	creds.register(cmd)
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Account.Logout(cmd.Context()); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sessionOutput{Message: "Logged out"})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Report whether a session token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				sess, err := a.Account.Current(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sessionOutput{LoggedIn: sess.Present()})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:   %s\n", a.Gateway.BaseURL())
				fmt.Fprintf(out, "Logged in: %s\n", yesNo(sess.Present()))
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

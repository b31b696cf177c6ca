package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLogoutCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the transcription service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return errors.New("--username and --password (or --password-stdin) are required")
			}
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			if err := backend.Session.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", strings.TrimSpace(username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			// Local tokens are gone even when the auth service could not be told.
			if err := backend.Session.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show login state and configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			loggedIn := backend.Session.LoggedIn()
			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"logged_in":       loggedIn,
					"auth_url":        cfg.Services.AuthURL,
					"diarization_url": cfg.Services.DiarizationURL,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in:       %s\n", yesNo(loggedIn))
			fmt.Fprintf(out, "Auth service:    %s\n", cfg.Services.AuthURL)
			fmt.Fprintf(out, "Transcriptions:  %s\n", cfg.Services.DiarizationURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

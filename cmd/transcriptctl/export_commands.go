package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var toDrive, jsonOut bool
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Save a transcript as text, optionally uploading it to Google Drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			tr, err := backend.Transcripts.GetTranscript(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var drive *storage.DriveClient
			if toDrive {
				drive, err = storage.NewDriveClient(cmd.Context(),
					cfg.GoogleDrive.CredentialsFile,
					apiclient.NewFileTokenStore(cfg.GoogleDrive.TokenFile),
					cfg.GoogleDrive.FolderName)
				if err != nil {
					ctx.log().Warn("google drive not available", zap.Error(err))
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: google drive unavailable: %v\n", err)
				}
			}
			exporter := storage.NewExporter(storage.NewLocalStorage(cfg.Storage.OutputDir), drive, ctx.log().Named("export"))
			res, err := exporter.Export(cmd.Context(), tr, toDrive)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s\n", res.LocalPath)
			if res.DriveURL != "" {
				fmt.Fprintf(out, "Uploaded %s\n", res.DriveURL)
			}
			if res.DriveError != "" && drive != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: upload failed: %s\n", res.DriveError)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&toDrive, "drive", false, "Also upload to Google Drive")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newDriveAuthCommand(ctx *commandContext) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "drive-auth",
		Short: "Authorize Google Drive uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err != nil {
				return fmt.Errorf("google drive credentials %q: %w", cfg.GoogleDrive.CredentialsFile, err)
			}
			oauthCfg, err := storage.DriveOAuthConfig(cfg.GoogleDrive.CredentialsFile)
			if err != nil {
				return err
			}
			if strings.TrimSpace(code) == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Open this link in your browser and paste the code below:\n%s\n\nCode: ", storage.DriveAuthURL(oauthCfg))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read authorization code: %w", err)
				}
				code = line
			}
			if strings.TrimSpace(code) == "" {
				return errors.New("authorization code is required")
			}
			store := apiclient.NewFileTokenStore(cfg.GoogleDrive.TokenFile)
			if err := storage.AuthorizeDrive(cmd.Context(), oauthCfg, code, store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Google Drive token saved to %s\n", store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted for when omitted)")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cbir/internal/app"
	"cbir/internal/gateway"
	"cbir/internal/upload"
)

type uploadOutput struct {
	Accepted     bool     `json:"accepted"`
	Message      string   `json:"message"`
	ValidFiles   []string `json:"valid_files"`
	InvalidFiles []string `json:"invalid_files"`
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var opts upload.Options

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload images for indexing",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readUploadFiles(args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				outcome, err := a.Upload.Submit(cmd.Context(), files, opts)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, uploadOutput{
						Accepted:     outcome.Accepted,
						Message:      outcome.Message,
						ValidFiles:   outcome.ValidFiles,
						InvalidFiles: outcome.InvalidFiles,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted %d of %d files\n", len(outcome.ValidFiles), len(files))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.RedactFaces, "redact-faces", false, "Ask the backend to blur faces")
	cmd.Flags().BoolVar(&opts.RedactText, "redact-text", false, "Ask the backend to blur visible text")
	return cmd
}

func readUploadFiles(paths []string) ([]gateway.UploadFile, error) {
	files := make([]gateway.UploadFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, gateway.UploadFile{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

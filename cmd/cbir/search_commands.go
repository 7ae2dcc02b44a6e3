package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cbir/internal/app"
	"cbir/internal/fileutil"
	"cbir/internal/search"
)

type resultsOutput struct {
	State     string   `json:"state"`
	Query     string   `json:"query,omitempty"`
	Filenames []string `json:"filenames"`
	Saved     []string `json:"saved,omitempty"`
	Message   string   `json:"message,omitempty"`
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var saveDir string

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Find images matching a text query",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				view, err := a.Search.Search(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printResults(cmd, ctx, view, saveDir)
			})
		},
	}
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Write result images into this directory")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var saveDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every image in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				view, err := a.Search.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				return printResults(cmd, ctx, view, saveDir)
			})
		},
	}
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Write images into this directory")
	return cmd
}

func printResults(cmd *cobra.Command, ctx *commandContext, view search.View, saveDir string) error {
	var saved []string
	if dir := strings.TrimSpace(saveDir); dir != "" {
		for _, item := range view.Items {
			path, err := fileutil.SaveImage(dir, item.Filename, item.Image)
			if err != nil {
				return err
			}
			saved = append(saved, path)
		}
	}

	if ctx.jsonOutput() {
		return writeJSON(cmd, resultsOutput{
			State:     string(view.State),
			Query:     view.Query,
			Filenames: view.Filenames(),
			Saved:     saved,
			Message:   view.Message,
		})
	}

	out := cmd.OutOrStdout()
	if view.State == search.StateNoResults {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	for i, name := range view.Filenames() {
		fmt.Fprintf(out, "%3d  %s\n", i+1, name)
	}
	if len(saved) > 0 {
		fmt.Fprintf(out, "Saved %d images to %s\n", len(saved), saveDir)
	}
	return nil
}

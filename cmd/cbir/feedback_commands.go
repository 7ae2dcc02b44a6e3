package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cbir/internal/app"
	"cbir/internal/gateway"
)

type feedbackOutput struct {
	Filename string `json:"filename"`
	Vote     string `json:"vote,omitempty"`
	Sentence string `json:"sentence,omitempty"`
	Message  string `json:"message"`
}

func parseVote(value string) (gateway.Vote, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "up", "+", "positive", "relevant":
		return gateway.VotePositive, nil
	case "down", "-", "negative", "irrelevant":
		return gateway.VoteNegative, nil
	default:
		return gateway.VoteNone, fmt.Errorf("unknown vote %q (use up or down)", value)
	}
}

func newVoteCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "vote FILENAME up|down",
		Short: "Mark a search result as relevant or irrelevant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vote, err := parseVote(args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				a.Feedback.Load(strings.TrimSpace(query), []string{args[0]})
				message, err := a.Feedback.Vote(cmd.Context(), args[0], vote)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, feedbackOutput{Filename: args[0], Vote: string(vote), Message: message})
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query the result was returned for")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate FILENAME SENTENCE...",
		Short: "Describe an image in your own words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				filename := args[0]
				sentence := strings.Join(args[1:], " ")
				a.Feedback.Load("", []string{filename})
				message, err := a.Feedback.Annotate(cmd.Context(), filename, sentence)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, feedbackOutput{Filename: filename, Sentence: sentence, Message: message})
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}

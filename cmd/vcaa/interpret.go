package main

import (
	"strings"

	"github.com/rahul/vcaa/internal/schema"
	"github.com/spf13/cobra"
)

func newInterpretCommand(a *app) *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "interpret <transcript>",
		Short: "Print the action plan or clarification for an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			meta := map[string]any{}
			if pageURL != "" {
				meta["page_url"] = pageURL
			}
			out := a.interpreter(client).Interpret(cmd.Context(), schema.TranscriptMessage{
				Version:    schema.VersionTranscript,
				ID:         schema.NewID(),
				TraceID:    schema.NewID(),
				Transcript: strings.Join(args, " "),
				Metadata:   meta,
			})
			return a.printJSON(out)
		},
	}
	cmd.Flags().StringVar(&pageURL, "page-url", "", "URL of the page the user is looking at")
	return cmd
}

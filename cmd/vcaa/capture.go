package main

import (
	"github.com/rahul/vcaa/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCaptureCommand(a *app) *cobra.Command {
	var (
		url string
		out string
		dom bool
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a page snapshot with a headless browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := snapshot.NewCapturer(a.cfg.Browser, a.logger.Named("snapshot"))
			var (
				snap any
				err  error
			)
			if dom {
				snap, err = c.CaptureDOM(cmd.Context(), url)
			} else {
				snap, err = c.CaptureAX(cmd.Context(), url)
			}
			if err != nil {
				return err
			}
			if out == "" {
				return a.printJSON(snap)
			}
			if err := snapshot.Save(out, snap); err != nil {
				return err
			}
			a.logger.Info("Snapshot written", zap.String("path", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to capture")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the snapshot here instead of stdout")
	cmd.Flags().BoolVar(&dom, "dom", false, "capture a DOM map instead of the accessibility tree")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

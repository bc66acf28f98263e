package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragchat/internal/app"
)

func newIngestCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Index a document into the configured vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(a *app.App) error {
				force := a.Config().Ingest.ForceRebuild
				if cmd.Flags().Changed("rebuild") {
					force = rebuild
				}
				report, err := a.Ingest(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Indexed %d chunks from %s; the store now holds %d.\n", report.Chunks, report.Source, report.StoreSize)
				if report.Summary != "" {
					fmt.Fprintln(out, report.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", true, "Clear the vector store first (overrides ingest.force_rebuild)")
	return cmd
}

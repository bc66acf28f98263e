package main

import (
	"github.com/spf13/cobra"

	"ragchat/internal/app"
)

func newRAGCmd() *cobra.Command {
	var (
		source  string
		rebuild bool
	)
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Index a document, then answer questions from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(a *app.App) error {
				cfg := a.Config()
				if source != "" {
					cfg.Ingest.Source = source
				}
				if cmd.Flags().Changed("rebuild") {
					cfg.Ingest.ForceRebuild = rebuild
				}
				return a.RunRAG(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Document to index (overrides ingest.source)")
	cmd.Flags().BoolVar(&rebuild, "rebuild", true, "Clear the vector store before indexing (overrides ingest.force_rebuild)")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"ragchat/internal/app"
)

func newChatCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat that remembers the conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(a *app.App) error {
				return a.RunChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), reset)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Discard stored history before starting")
	return cmd
}

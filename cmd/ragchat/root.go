package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ragchat/internal/app"
	"ragchat/internal/config"
	"ragchat/internal/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Chat with a hosted LLM, optionally grounded in a local document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to YAML config file (default ./config.yaml, then ~/.config/ragchat/config.yaml)")
	root.AddCommand(newChatCmd(), newRAGCmd(), newIngestCmd())
	return root
}

// setup loads the configuration named by --config, applies the environment
// overlay and builds the App. The returned func releases everything.
func setup(cmd *cobra.Command) (*app.App, func() error, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, nil, err
	}

	logger, flush, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		flush()
		return nil, nil, err
	}
	a.Progress = os.Stderr
	return a, func() error {
		err := a.Close()
		flush()
		return err
	}, nil
}

// run executes fn against a fresh App and reports the first error.
func run(cmd *cobra.Command, fn func(a *app.App) error) (err error) {
	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cleanup()) }()
	return fn(a)
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/sentinelai/internal/config"
)

type rootOpts struct {
	ConfigPath string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOpts{}
	rootCmd := &cobra.Command{
		Use:   "sentinel",
		Short: "AI-assisted phishing and credential-leak analysis",
		Long: `SentinelAI sends emails, URLs, API keys, SMS, screenshots, QR codes and
files to a generative AI service and returns a normalized risk verdict.`,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.Path(), "Path to config.yaml (CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newScanCommand(opts))
	return rootCmd
}

func Execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}

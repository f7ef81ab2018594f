// Package main provides the tether CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/richinex/tether/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider   string
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var maxRounds int
	var root string

	cmd := &cobra.Command{
		Use:   "tether [prompt]",
		Short: "A coding agent confined to one working directory",
		Long: `Answer a prompt with an LLM that can list, read and write files and run
scripts inside a single working directory.

The model works in rounds: each reply either calls tools, whose results are
sent back, or gives the final answer. A run stops after --max-rounds rounds.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) == 1 {
				prompt = strings.TrimSpace(args[0])
			}
			if prompt == "" {
				_ = cmd.Usage()
				return cli.ErrMissingPrompt
			}
			opts := cli.Options{
				Provider:   provider,
				ConfigPath: configPath,
				MaxRounds:  maxRounds,
				Root:       root,
				Verbose:    verbose,
			}
			return cli.Run(cmd.Context(), prompt, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show tool arguments, token counts and usage")
	cmd.Flags().IntVarP(&maxRounds, "max-rounds", "m", 0, "Maximum model rounds (default from config, 15)")
	cmd.Flags().StringVar(&root, "root", "", "Working directory the tools are confined to")

	cmd.AddCommand(usageCmd())
	cmd.AddCommand(toolsCmd())

	return cmd
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show token and request usage for the last minute and day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{Provider: provider, ConfigPath: configPath}
			return cli.Usage(cmd.Context(), opts)
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{Provider: provider, ConfigPath: configPath}
			return cli.ListTools(opts, verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/pkg/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "weddingctl",
		Short: "Command-line client for the Wedding OS planning API",
		Long: `weddingctl signs in to the Wedding OS API, keeps the session on disk
(or in Redis), and drives the invitation workflow from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.APIBaseURL, "base-url", cfg.APIBaseURL, "API base URL")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "session storage backend (file, redis, memory)")
	flags.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")

	rootCmd.AddCommand(
		loginCmd(cfg),
		logoutCmd(cfg),
		whoamiCmd(cfg),
		profilesCmd(cfg),
		requestCmd(cfg),
		designsCmd(cfg),
		tonesCmd(cfg),
		mapCmd(cfg),
		themeCmd(cfg),
		threeDCmd(cfg),
		versionCmd(),
	)

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weddingctl %s (%s)\n", version, commit)
		},
	}
}

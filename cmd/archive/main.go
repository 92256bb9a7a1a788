// Package main is the entry point for the comment archive. It builds the
// static site, watches templates in a terminal UI and reports on the archive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/j-veylop/comment-archive/internal/config"
	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/services"
	"github.com/j-veylop/comment-archive/internal/version"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	debug bool
	human bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	build := &buildOptions{}

	root := &cobra.Command{
		Use:   "archive",
		Short: "Archive comments into a browsable static site",
		Long: `archive fetches comments from a remote source into a local SQLite store
and renders one page per day, month and year plus a latest page and an index.

Running archive without a subcommand performs a single build.

Configuration is read from the environment and from .env files in the
current directory, ~/.config/comment-archive/.env and ~/.comment-archive/.env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Init(opts.debug, opts.human)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), cmd, build)
		},
	}

	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.human, "human", false, "human-friendly console log format")
	build.register(root)

	root.AddCommand(
		newBuildCmd(),
		newWatchCmd(opts),
		newStatsCmd(),
		newPublishCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// openManager loads configuration and starts the service manager. fetching
// marks commands that pull from the comment source. The caller must Close the
// manager.
func openManager(fetching bool) (*services.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if fetching {
		if err := cfg.RequireSource(); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, nil
}

func closeManager(mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		logger.Warn("error closing services", "error", err)
	}
}

package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/comment-archive/internal/app"
	"github.com/j-veylop/comment-archive/internal/logger"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild on template changes and on a timer",
		Long: `watch runs an initial build and then keeps the site fresh: template edits
trigger a re-render from the local store and REFRESH_INTERVAL triggers a
fetch and rebuild. Progress is shown in a terminal UI.

Keys: r rebuild, f refetch everything and rebuild, ? help, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The UI owns the terminal; logs go to a file or nowhere.
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			logger.InitWriter(out, root.debug, root.human)

			mgr, err := openManager(true)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			if err := mgr.StartWatching(); err != nil {
				return fmt.Errorf("failed to start watching: %w", err)
			}

			model := app.NewModel(mgr, mgr.Config().OutputDir)
			model.SetBuildOnStart(true)

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file while the UI runs")

	return cmd
}

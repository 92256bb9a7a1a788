package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/comment-archive/internal/models"
)

type buildOptions struct {
	force     bool
	skipFetch bool
}

func (o *buildOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.force, "force", false, "refetch the full comment history")
	cmd.Flags().BoolVar(&o.skipFetch, "skip-fetch", false, "render from the local store only")
}

func (o *buildOptions) options() (models.BuildOptions, error) {
	if o.force && o.skipFetch {
		return models.BuildOptions{}, errors.New("--force and --skip-fetch are mutually exclusive")
	}
	return models.BuildOptions{Force: o.force, SkipFetch: o.skipFetch}, nil
}

func newBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch new comments and render the site once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), cmd, opts)
		},
	}
	opts.register(cmd)

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, flags *buildOptions) error {
	opts, err := flags.options()
	if err != nil {
		return err
	}

	mgr, err := openManager(!opts.SkipFetch)
	if err != nil {
		return err
	}
	defer closeManager(mgr)

	result, err := mgr.Build(ctx, opts)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderBuildSummary(result))
	return nil
}

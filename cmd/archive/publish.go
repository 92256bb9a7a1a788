package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload the current output directory to S3 without building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openManager(false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			n, err := mgr.Publish(cmd.Context())
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			cfg := mgr.Config()
			fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessTextStyle.Render(
				fmt.Sprintf("Published %d objects from %s to s3://%s/%s", n, cfg.OutputDir, cfg.PublishBucket, cfg.PublishPrefix)))
			return nil
		},
	}
}

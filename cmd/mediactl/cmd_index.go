package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"media-picker/internal/exifmeta"
	"media-picker/internal/indexer"
	"media-picker/internal/probe"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Run one indexing pass over MEDIA_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Prepare(); err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer store.Close()

			prober := probe.New()
			idx := indexer.New(store, config.MediaDir, 0,
				indexer.WithCaptureTime(
					func(_ context.Context, path string) (time.Time, error) { return exifmeta.DateTaken(path) },
					func(ctx context.Context, path string) (time.Time, error) {
						info, err := prober.Probe(ctx, path)
						if err != nil {
							return time.Time{}, err
						}
						return info.CreationTime, nil
					},
				),
				indexer.WithWalkerConfig(indexer.DefaultParallelWalkerConfig(config.Workers)),
			)

			stats, err := idx.Index(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%d changed, %d pruned, %d errors) in %v\n",
				stats.Files, stats.Changed, stats.Pruned, stats.Errors, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

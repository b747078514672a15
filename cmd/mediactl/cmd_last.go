package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"media-picker/internal/cache"
	"media-picker/internal/extract"
	"media-picker/internal/media"
	"media-picker/internal/mediastore"
	"media-picker/internal/mediatypes"
	"media-picker/internal/memory"
	"media-picker/internal/normalize"
	"media-picker/internal/orchestrator"
	"media-picker/internal/pipeline"
	"media-picker/internal/probe"
	"media-picker/internal/query"
	"media-picker/internal/resolver"
	"media-picker/internal/workers"
)

func newLastCmd() *cobra.Command {
	var (
		mediaType string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "last",
		Short: "List recent media through the full pipeline",
		Long: `last runs getLastMedias against the repository index with every read
capability granted and prints the resulting records as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Prepare(); err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), config, mediastore.WithFrameSource(media.ExtractFrame))
			if err != nil {
				return err
			}
			defer store.Close()

			if err := media.InitVips(); err == nil {
				defer media.ShutdownVips()
			}

			gate := memory.NewGate(memory.DefaultConfig())
			tier := extract.Tier(config.CapabilityTier)
			pipe := pipeline.New(
				cache.New(store, config.CacheDir),
				resolver.New(),
				normalize.New(gate, normalize.DefaultTiers()...),
				extract.New(config.CacheDir,
					extract.WithProber(probe.New()),
					extract.WithTiers(extract.TiersFor(tier, store, extract.NewFrameTier(gate))...),
					extract.WithThumbnailSize(config.ThumbnailSize),
				),
			)

			pool := workers.NewPool(workers.ForIO(config.Workers), 0)
			defer pool.Close()
			loop := orchestrator.NewLoop(1)
			defer loop.Close()

			orch := orchestrator.New(orchestrator.Config{
				Pool:     pool,
				Loop:     loop,
				Pipeline: pipe,
				Query:    query.New(store, query.WithRoot(config.MediaDir)),
				Tier:     tier,
				CacheDir: config.CacheDir,
				Granted:  orchestrator.CapabilitiesFor(tier, mediatypes.MediaAll),
			})

			opts, warnings := orchestrator.ParseListOptions(map[string]any{
				"mediaType": mediaType,
				"limit":     limit,
				"offset":    offset,
			})
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: ignoring %s\n", w)
			}

			records, err := orch.GetLastMedias(cmd.Context(), "mediactl", opts, nil)
			if err != nil {
				return err
			}
			if records == nil {
				records = []pipeline.MediaRecord{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVarP(&mediaType, "type", "t", string(mediatypes.MediaImages), "Media type: images, videos or all")
	cmd.Flags().IntVarP(&limit, "limit", "n", orchestrator.DefaultListLimit, "Number of items")
	cmd.Flags().IntVar(&offset, "offset", orchestrator.DefaultListOffset, "Items to skip")
	return cmd
}

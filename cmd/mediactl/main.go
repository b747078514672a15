package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-picker/internal/startup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mediactl",
		Short: "Operate the media picker's repository index and cache",
		Long: `mediactl works on the media picker's repository index and cache
directory, configured through the same environment as the service.

Examples:
  mediactl index
  mediactl last --type all --limit 5
  mediactl exif file:///cache/1f2e3d4c5b6a7980_0.jpg Orientation
  mediactl cache clear --yes`,
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newIndexCmd())
	root.AddCommand(newLastCmd())
	root.AddCommand(newExifCmd())
	root.AddCommand(newCacheCmd())
	return root
}

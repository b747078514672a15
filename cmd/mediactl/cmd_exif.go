package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"media-picker/internal/exifmeta"
)

func newExifCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exif <uri> [key]",
		Short: "Print EXIF metadata of a cached file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return printExifValue(cmd.OutOrStdout(), args[0], args[1])
			}
			return printExifAll(cmd.OutOrStdout(), args[0])
		},
	}
}

func printExifValue(w io.Writer, uri, key string) error {
	value, found, err := exifmeta.GetForKey(uri, key)
	if err != nil {
		return fmt.Errorf("Exif error: %w", err)
	}
	if !found {
		fmt.Fprintln(w, "null")
		return nil
	}
	fmt.Fprintln(w, value)
	return nil
}

func printExifAll(w io.Writer, uri string) error {
	tags, err := exifmeta.GetAll(uri)
	if err != nil {
		return fmt.Errorf("Exif error: %w", err)
	}

	names := make([]string, 0, len(tags))
	width := 0
	for name := range tags {
		names = append(names, name)
		width = max(width, len(name))
	}
	slices.Sort(names)

	for _, name := range names {
		fmt.Fprintf(w, "%s%s  %s\n", name, strings.Repeat(" ", width-len(name)), tags[name])
	}
	return nil
}

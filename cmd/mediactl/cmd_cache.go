package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"media-picker/internal/cache"
)

// errNotConfirmed is returned when clearing was declined or could not be
// confirmed.
var errNotConfirmed = errors.New("cache clear not confirmed")

// isTerminal reports whether stdin is interactive. Replaced in tests.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache directory commands",
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every file in CACHE_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			m := cache.New(nil, config.CacheDir)

			if !yes {
				size, err := m.Size()
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				if err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), isTerminal(),
					fmt.Sprintf("Remove %d bytes of cached media from %s?", size, m.Dir())); err != nil {
					return err
				}
			}

			freed, err := m.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Freed %d bytes from %s\n", freed, m.Dir())
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(clearCmd)
	return cmd
}

// confirm asks question on out and reads a y/yes answer from in. Without a
// terminal nothing is asked and the answer is no.
func confirm(in io.Reader, out io.Writer, interactive bool, question string) error {
	if !interactive {
		return fmt.Errorf("%w: stdin is not a terminal, pass --yes", errNotConfirmed)
	}

	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errNotConfirmed
}

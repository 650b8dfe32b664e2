package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/mediadesk/internal/config"
	"github.com/nikhilbhutani/mediadesk/internal/scratch"
)

func sweepCmd() *cobra.Command {
	var (
		dir    string
		maxAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale upload directories left by a crashed server",
		Long: `Remove per-request scratch directories older than --max-age.

Only directories whose names are request IDs are touched, so pointing
this at a shared directory does not delete unrelated files.

Examples:
  mediadesk sweep
  mediadesk sweep --max-age=10m --dir=/var/tmp/mediadesk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dir == "" {
				dir = cfg.Upload.ScratchDir
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.Upload.MaxAge
			}

			store, err := scratch.New(dir)
			if err != nil {
				return err
			}
			n, err := store.Sweep(maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale upload(s) from %s\n", n, store.Dir())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scratch directory (default from SCRATCH_DIR)")
	cmd.Flags().DurationVar(&maxAge, "max-age", time.Hour, "Remove entries older than this")

	return cmd
}

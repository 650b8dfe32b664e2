package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/mediadesk/internal/audit"
	"github.com/nikhilbhutani/mediadesk/internal/config"
	"github.com/nikhilbhutani/mediadesk/internal/database"
	"github.com/nikhilbhutani/mediadesk/internal/models"
)

func auditCmd() *cobra.Command {
	var (
		operation string
		since     time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print recent processing log entries as JSON lines",
		Long: `Print the newest processing log rows from the database.

Requires DATABASE_URL.

Examples:
  mediadesk audit --limit=20
  mediadesk audit --operation=ocr --since=1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch models.Operation(operation) {
			case "", models.OperationAudio, models.OperationOCR, models.OperationTranslate:
			default:
				return fmt.Errorf("unknown operation %q", operation)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := database.NewPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			q := audit.Query{Operation: models.Operation(operation), Limit: limit}
			if since > 0 {
				t := time.Now().Add(-since)
				q.Since = &t
			}

			logs, err := audit.NewService(pool).Recent(ctx, q)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, l := range logs {
				if err := enc.Encode(l); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "", "Filter by operation: audio, ocr or translate")
	cmd.Flags().DurationVar(&since, "since", 0, "Only entries newer than this")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries")

	return cmd
}

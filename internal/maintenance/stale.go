package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CloseStaleTickets closes open tickets whose last update is older than
// the specified days. The function is idempotent - safe to run repeatedly.
//
// Returns the number of tickets closed.
func CloseStaleTickets(ctx context.Context, pool *pgxpool.Pool, staleDays int) (int64, error) {
	query := `
		UPDATE tickets
		SET open = FALSE, updated_at = NOW()
		WHERE open
		  AND updated_at < NOW() - INTERVAL '1 day' * $1
	`

	tag, err := pool.Exec(ctx, query, staleDays)
	if err != nil {
		return 0, fmt.Errorf("failed to close stale tickets: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RunSweep executes the stale-ticket sweep and logs the results.
// This is the main entry point called by the cron scheduler.
func RunSweep(ctx context.Context, pool *pgxpool.Pool, staleDays int) error {
	log.Info().
		Int("stale_days", staleDays).
		Msg("Starting stale ticket sweep")

	startTime := time.Now()

	closed, err := CloseStaleTickets(ctx, pool, staleDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to close stale tickets")
		return fmt.Errorf("stale ticket sweep failed: %w", err)
	}

	log.Info().
		Int64("tickets_closed", closed).
		Dur("duration", time.Since(startTime)).
		Msg("Stale ticket sweep completed")

	return nil
}

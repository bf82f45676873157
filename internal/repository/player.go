package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayerRepository handles player name persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// Upsert stores the display name of a player, replacing the previous one.
func (r *PlayerRepository) Upsert(ctx context.Context, telegramID int64, displayName string) error {
	const query = `
		INSERT INTO players (telegram_id, display_name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (telegram_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, telegramID, displayName); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

// Names returns the display names of the given players. Unknown ids are
// absent from the result.
func (r *PlayerRepository) Names(ctx context.Context, telegramIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(telegramIDs))
	if len(telegramIDs) == 0 {
		return names, nil
	}

	const query = `
		SELECT telegram_id, display_name
		FROM players
		WHERE telegram_id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, telegramIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get player names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return names, nil
}

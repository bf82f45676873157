// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chat-game-bot/internal/model"
)

// ResultRepository handles game history persistence.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository instance.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Record stores a finished game and fills in its ID.
func (r *ResultRepository) Record(ctx context.Context, result *model.GameResult) error {
	const query = `
		INSERT INTO game_results (chat_id, game_type, outcome, players, winners, loser, words, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	winners := result.Winners
	if winners == nil {
		winners = []string{}
	}

	err := r.pool.QueryRow(ctx, query,
		result.ChatID,
		string(result.GameType),
		result.Outcome,
		result.Players,
		winners,
		result.Loser,
		result.Words,
		result.StartedAt,
		result.FinishedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to record game result: %w", err)
	}

	return nil
}

// RecentByChat retrieves the latest finished games of a chat, newest first.
func (r *ResultRepository) RecentByChat(ctx context.Context, chatID string, limit int) ([]*model.GameResult, error) {
	const query = `
		SELECT id, chat_id, game_type, outcome, players, winners, loser, words, started_at, finished_at
		FROM game_results
		WHERE chat_id = $1
		ORDER BY finished_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game results: %w", err)
	}
	defer rows.Close()

	var results []*model.GameResult
	for rows.Next() {
		var res model.GameResult
		var gameType string
		err := rows.Scan(
			&res.ID,
			&res.ChatID,
			&gameType,
			&res.Outcome,
			&res.Players,
			&res.Winners,
			&res.Loser,
			&res.Words,
			&res.StartedAt,
			&res.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game result: %w", err)
		}
		res.GameType = model.GameType(gameType)
		results = append(results, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game results: %w", err)
	}

	return results, nil
}

// WinCounts returns how many games of the given type each player won in
// the chat. Rows are unordered.
func (r *ResultRepository) WinCounts(ctx context.Context, chatID string, gameType model.GameType) ([]*model.PlayerWins, error) {
	const query = `
		SELECT w.player_id, COUNT(*) AS wins
		FROM game_results g
		CROSS JOIN LATERAL unnest(g.winners) AS w(player_id)
		WHERE g.chat_id = $1 AND g.game_type = $2
		GROUP BY w.player_id
	`

	rows, err := r.pool.Query(ctx, query, chatID, string(gameType))
	if err != nil {
		return nil, fmt.Errorf("failed to get win counts: %w", err)
	}
	defer rows.Close()

	var wins []*model.PlayerWins
	for rows.Next() {
		var pw model.PlayerWins
		if err := rows.Scan(&pw.PlayerID, &pw.Wins); err != nil {
			return nil, fmt.Errorf("failed to scan win count: %w", err)
		}
		wins = append(wins, &pw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating win counts: %w", err)
	}

	return wins, nil
}

// CountGames returns the number of finished games of the given type in the chat.
func (r *ResultRepository) CountGames(ctx context.Context, chatID string, gameType model.GameType) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM game_results
		WHERE chat_id = $1 AND game_type = $2
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, chatID, string(gameType)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}

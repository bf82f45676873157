// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"sort"

	"chat-game-bot/internal/model"
)

const (
	// DefaultLeaderboardSize is the number of players shown per game.
	DefaultLeaderboardSize = 10

	// RecentGamesSize is the number of finished games listed under the
	// leaderboards.
	RecentGamesSize = 5
)

// ResultStore is the part of the result repository the stats need.
type ResultStore interface {
	WinCounts(ctx context.Context, chatID string, gameType model.GameType) ([]*model.PlayerWins, error)
	CountGames(ctx context.Context, chatID string, gameType model.GameType) (int64, error)
	RecentByChat(ctx context.Context, chatID string, limit int) ([]*model.GameResult, error)
}

// Leaderboard is the win ranking of one game in one chat.
type Leaderboard struct {
	GameType model.GameType
	Played   int64
	Top      []*model.PlayerWins
}

// StatsService builds chat leaderboards from the game history.
type StatsService struct {
	results ResultStore
	limit   int
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(results ResultStore, limit int) *StatsService {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	return &StatsService{
		results: results,
		limit:   limit,
	}
}

// ChatLeaderboards returns one leaderboard per game type, in the given order.
func (s *StatsService) ChatLeaderboards(ctx context.Context, chatID string, types []model.GameType) ([]*Leaderboard, error) {
	boards := make([]*Leaderboard, 0, len(types))
	for _, gt := range types {
		played, err := s.results.CountGames(ctx, chatID, gt)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s stats: %w", gt, err)
		}
		wins, err := s.results.WinCounts(ctx, chatID, gt)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s stats: %w", gt, err)
		}
		boards = append(boards, &Leaderboard{
			GameType: gt,
			Played:   played,
			Top:      RankWins(wins, s.limit),
		})
	}
	return boards, nil
}

// RecentGames returns the last finished games of the chat, newest first.
func (s *StatsService) RecentGames(ctx context.Context, chatID string) ([]*model.GameResult, error) {
	recent, err := s.results.RecentByChat(ctx, chatID, RecentGamesSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent games: %w", err)
	}
	return recent, nil
}

// RankWins orders players by wins descending, breaking ties by player id,
// and keeps at most limit entries. The input is not modified.
func RankWins(wins []*model.PlayerWins, limit int) []*model.PlayerWins {
	ranked := make([]*model.PlayerWins, 0, len(wins))
	for _, w := range wins {
		if w != nil && w.Wins > 0 {
			ranked = append(ranked, w)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

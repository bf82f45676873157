// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"chat-game-bot/internal/model"
	"chat-game-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))
	// Applying the schema twice must be harmless.
	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func result(chatID string, gt model.GameType, outcome string, finished time.Time, players, winners []string) *model.GameResult {
	return &model.GameResult{
		ChatID:     chatID,
		GameType:   gt,
		Outcome:    outcome,
		Players:    players,
		Winners:    winners,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

// ============================================================================
// ResultRepository Tests
// ============================================================================

func TestResultRepository_RecordAndRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewResultRepository(pool)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	loser := "222"
	first := result("-100", model.GameTicTacToe, model.OutcomeWin, base, []string{"111", "222"}, []string{"111"})
	first.Loser = &loser
	require.NoError(t, repo.Record(ctx, first))
	assert.NotZero(t, first.ID)

	second := result("-100", model.GameWordChain, model.OutcomeCompleted, base.Add(time.Hour), []string{"111", "222", "333"}, []string{"222"})
	second.Words = 10
	require.NoError(t, repo.Record(ctx, second))

	draw := result("-100", model.GameTicTacToe, model.OutcomeDraw, base.Add(2*time.Hour), []string{"111", "222"}, nil)
	require.NoError(t, repo.Record(ctx, draw))

	other := result("-200", model.GameTicTacToe, model.OutcomeWin, base, []string{"444", "555"}, []string{"444"})
	require.NoError(t, repo.Record(ctx, other))

	recent, err := repo.RecentByChat(ctx, "-100", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, draw.ID, recent[0].ID)
	assert.Empty(t, recent[0].Winners)
	assert.Equal(t, model.GameWordChain, recent[1].GameType)
	assert.Equal(t, 10, recent[1].Words)
	assert.Nil(t, recent[1].Loser)
	require.NotNil(t, recent[2].Loser)
	assert.Equal(t, "222", *recent[2].Loser)
	assert.True(t, recent[2].FinishedAt.Equal(base))

	limited, err := repo.RecentByChat(ctx, "-100", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestResultRepository_WinCounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewResultRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	records := []*model.GameResult{
		result("-100", model.GameWordChain, model.OutcomeCompleted, now, []string{"a", "b", "c"}, []string{"a", "b"}),
		result("-100", model.GameWordChain, model.OutcomeTimeout, now, []string{"a", "b", "c"}, []string{"a", "c"}),
		result("-100", model.GameWordChain, model.OutcomeCompleted, now, []string{"a", "b"}, []string{"a"}),
		result("-100", model.GameTicTacToe, model.OutcomeWin, now, []string{"a", "b"}, []string{"b"}),
		result("-200", model.GameWordChain, model.OutcomeCompleted, now, []string{"a"}, []string{"a"}),
	}
	for _, r := range records {
		require.NoError(t, repo.Record(ctx, r))
	}

	wins, err := repo.WinCounts(ctx, "-100", model.GameWordChain)
	require.NoError(t, err)

	got := map[string]int64{}
	for _, w := range wins {
		got[w.PlayerID] = w.Wins
	}
	assert.Equal(t, map[string]int64{"a": 3, "b": 1, "c": 1}, got)

	count, err := repo.CountGames(ctx, "-100", model.GameWordChain)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repo.CountGames(ctx, "-300", model.GameTicTacToe)
	require.NoError(t, err)
	assert.Zero(t, count)

	empty, err := repo.WinCounts(ctx, "-300", model.GameTicTacToe)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResultRepository_ConcurrentRecords(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewResultRepository(pool)
	ctx := context.Background()

	const n = 20
	errs := make(chan error, n)
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			r := result("-100", model.GameTicTacToe, model.OutcomeTimeout, time.Now(), []string{"a", "b"}, nil)
			errs <- repo.Record(ctx, r)
			ids <- r.ID
		}()
	}

	seen := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		seen = append(seen, <-ids)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i := 1; i < n; i++ {
		assert.NotEqual(t, seen[i-1], seen[i])
	}

	count, err := repo.CountGames(ctx, "-100", model.GameTicTacToe)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_UpsertAndNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	names, err := repo.Names(ctx, []int64{1})
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, repo.Upsert(ctx, 1, "Ann"))
	require.NoError(t, repo.Upsert(ctx, 2, "Bo"))
	require.NoError(t, repo.Upsert(ctx, 1, "Anna"))

	names, err = repo.Names(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Anna", 2: "Bo"}, names)

	empty, err := repo.Names(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

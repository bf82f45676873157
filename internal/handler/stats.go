package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
	"chat-game-bot/internal/service"
)

// PlayerNames renders players in outgoing text.
type PlayerNames interface {
	Mention(player string) string
	// Preload fetches names that are not known yet, best effort.
	Preload(ctx context.Context, players []string)
}

// StatsHandler handles the game history commands.
type StatsHandler struct {
	stats    *service.StatsService
	registry *game.Registry
	names    PlayerNames
}

// NewStatsHandler creates a new StatsHandler. stats may be nil when the game
// history is disabled.
func NewStatsHandler(stats *service.StatsService, registry *game.Registry, names PlayerNames) *StatsHandler {
	return &StatsHandler{
		stats:    stats,
		registry: registry,
		names:    names,
	}
}

// HandleGameStats handles the /gamestats command.
// Displays the win leaderboard of every game in the chat.
func (h *StatsHandler) HandleGameStats(c tele.Context) error {
	if h.stats == nil {
		return c.Reply("📊 Game history is disabled.")
	}
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	ctx := context.Background()
	chatID := strconv.FormatInt(chat.ID, 10)
	boards, err := h.stats.ChatLeaderboards(ctx, chatID, gameTypes(h.registry))
	if err != nil {
		return statsFailed(c, chatID, err)
	}
	recent, err := h.stats.RecentGames(ctx, chatID)
	if err != nil {
		return statsFailed(c, chatID, err)
	}

	h.preload(ctx, boards, recent)
	return c.Reply(h.render(boards)+h.renderRecent(recent), tele.ModeHTML)
}

func statsFailed(c tele.Context, chatID string, err error) error {
	log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to load leaderboards")
	return c.Reply("❌ Failed to load the leaderboard, please try again later.")
}

// preload fetches the names of every player the reply mentions.
func (h *StatsHandler) preload(ctx context.Context, boards []*service.Leaderboard, recent []*model.GameResult) {
	var players []string
	for _, board := range boards {
		for _, w := range board.Top {
			players = append(players, w.PlayerID)
		}
	}
	for _, g := range recent {
		players = append(players, g.Winners...)
	}
	h.names.Preload(ctx, players)
}

func (h *StatsHandler) gameName(gt model.GameType) string {
	if rules, ok := h.registry.Get(gt); ok {
		return rules.Name()
	}
	return string(gt)
}

func (h *StatsHandler) render(boards []*service.Leaderboard) string {
	var b strings.Builder
	b.WriteString("📊 <b>Game leaderboard</b>\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for _, board := range boards {
		b.WriteString("━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(&b, "🎮 <b>%s</b> (%d played)\n", h.gameName(board.GameType), board.Played)
		if len(board.Top) == 0 {
			b.WriteString("No winners yet\n")
			continue
		}
		for i, w := range board.Top {
			rank := fmt.Sprintf("%d.", i+1)
			if i < len(medals) {
				rank = medals[i]
			}
			fmt.Fprintf(&b, "%s %s: %d %s\n", rank, h.names.Mention(w.PlayerID), w.Wins, winsLabel(w.Wins))
		}
	}
	return b.String()
}

// renderRecent lists the last finished games, or nothing if there are none.
func (h *StatsHandler) renderRecent(recent []*model.GameResult) string {
	if len(recent) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("━━━━━━━━━━━━━━━\n")
	b.WriteString("🕘 <b>Recent games</b>\n")
	for _, g := range recent {
		var result string
		switch {
		case len(g.Winners) > 0:
			result = "🏆 " + game.MentionAll(g.Winners, h.names.Mention, ", ")
		case g.Outcome == model.OutcomeDraw:
			result = "🤝 Draw"
		default:
			result = "⏰ No winner"
		}
		fmt.Fprintf(&b, "• %s: %s", h.gameName(g.GameType), result)
		if g.Words > 0 {
			fmt.Fprintf(&b, " (%d words)", g.Words)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func winsLabel(n int64) string {
	if n == 1 {
		return "win"
	}
	return "wins"
}

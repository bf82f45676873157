package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/game"
)

// AdminHandler handles admin commands.
type AdminHandler struct {
	engine *game.Engine
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(engine *game.Engine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

// HandleResetGames handles the /resetgames command.
// Removes every game of the chat whatever its phase and stops its timers.
func (h *AdminHandler) HandleResetGames(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	chatID := strconv.FormatInt(chat.ID, 10)
	removed, err := h.engine.Reset(context.Background(), chatID)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to reset games")
		return c.Reply(msgFailed)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("chat_id", chatID).
		Int("removed", removed).
		Msg("Admin reset games")

	if removed == 0 {
		return c.Reply("ℹ️ No game is running in this chat.")
	}
	return c.Reply(fmt.Sprintf("🧹 Removed %d game(s) from this chat.", removed))
}

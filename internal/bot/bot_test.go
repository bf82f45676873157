package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/config"
	"chat-game-bot/internal/game"
	"chat-game-bot/internal/game/tictactoe"
)

func TestCommandMenu(t *testing.T) {
	registry := game.NewRegistry()
	require.NoError(t, registry.Register(tictactoe.New(nil)))

	menu := commandMenu(registry)

	texts := make([]string, 0, len(menu))
	for _, c := range menu {
		texts = append(texts, c.Text)
		assert.NotEmpty(t, c.Description, c.Text)
	}
	assert.Equal(t, []string{"cancel_ttt", "join_ttt", "leave_ttt", "ttt", "gamestats"}, texts)
	assert.Equal(t, "Join the waiting Tic-Tac-Toe game", menu[1].Description)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &Dependencies{})
	assert.Error(t, err)

	_, err = New(&tele.Bot{}, &Dependencies{Config: &config.Config{}})
	assert.Error(t, err)

	_, err = NewTeleBot(&config.BotConfig{})
	assert.EqualError(t, err, "bot token is required")
}

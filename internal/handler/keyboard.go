package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/model"
)

const (
	// CallbackPrefix is the prefix for all lobby button callback data
	CallbackPrefix = "game_"
)

// EncodeCallback encodes a command into callback data, e.g. "game_join_ttt".
func EncodeCallback(cmd Command) string {
	return CallbackPrefix + string(cmd.Action) + "_" + string(cmd.Game)
}

// DecodeCallback decodes callback data produced by EncodeCallback. Telebot
// may prefix the data with \f.
func DecodeCallback(data string) (Command, bool) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Command{}, false
	}
	action, gt, ok := strings.Cut(strings.TrimPrefix(data, CallbackPrefix), "_")
	if !ok {
		return Command{}, false
	}
	cmd := Command{Action: Action(action), Game: model.GameType(gt)}
	if cmd.Action == ActionStart || !isCommand(cmd) {
		return Command{}, false
	}
	return cmd, true
}

// LobbyKeyboard builds the buttons attached to a lobby announcement.
// Layout:
//   - Row 1: [Join]
//   - Row 2: [Leave] and [Cancel] when the game can be cancelled
func LobbyKeyboard(gt model.GameType) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	joinRow := []tele.InlineButton{
		{
			Text: "✋ Join",
			Data: EncodeCallback(Command{ActionJoin, gt}),
		},
	}

	exitRow := []tele.InlineButton{
		{
			Text: "🚪 Leave",
			Data: EncodeCallback(Command{ActionLeave, gt}),
		},
	}
	if cancel := (Command{ActionCancel, gt}); isCommand(cancel) {
		exitRow = append(exitRow, tele.InlineButton{
			Text: "❌ Cancel",
			Data: EncodeCallback(cancel),
		})
	}

	markup.InlineKeyboard = [][]tele.InlineButton{joinRow, exitRow}
	return markup
}

func isCommand(cmd Command) bool {
	for _, known := range commands {
		if known == cmd {
			return true
		}
	}
	return false
}

// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
	"chat-game-bot/internal/pkg/lock"
)

const (
	msgBusy   = "⏳ The game is busy, please try again in a moment."
	msgFailed = "❌ Something went wrong, please try again later."
)

// GameHandler routes chat messages to the game engine.
type GameHandler struct {
	engine *game.Engine
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(engine *game.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

// HandleCommand returns the handler of a fixed lifecycle command, used for
// the Telegram command aliases such as /join_ttt.
func (h *GameHandler) HandleCommand(cmd Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, player, ok := ids(c)
		if !ok {
			return nil
		}
		reply, err := h.dispatch(context.Background(), cmd, chatID, player)
		return respond(c, reply, err, markupFor(cmd))
	}
}

// HandleText handles every plain text message: lifecycle commands written
// as text and game moves.
func (h *GameHandler) HandleText(c tele.Context) error {
	chatID, player, ok := ids(c)
	if !ok {
		return nil
	}
	ctx := context.Background()

	if cmd, ok := ParseCommand(c.Text()); ok {
		reply, err := h.dispatch(ctx, cmd, chatID, player)
		return respond(c, reply, err, markupFor(cmd))
	}

	reply, err := h.engine.Move(ctx, chatID, player, Normalize(c.Text()))
	return respond(c, reply, err, nil)
}

// HandleCallback handles the lobby buttons. Rule violations are shown as a
// popup; successful actions are announced in the chat.
func (h *GameHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	chatID, player, ok := ids(c)
	if callback == nil || !ok {
		return nil
	}

	cmd, ok := DecodeCallback(callback.Data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown action"})
	}

	reply, err := h.dispatch(context.Background(), cmd, chatID, player)
	if err != nil {
		var v *game.Violation
		switch {
		case errors.As(err, &v):
			return c.Respond(&tele.CallbackResponse{Text: plainText(v.Reason), ShowAlert: true})
		case game.IsIgnorable(err):
			return c.Respond()
		case errors.Is(err, lock.ErrLockTimeout):
			return c.Respond(&tele.CallbackResponse{Text: msgBusy})
		}
		log.Error().Err(err).Str("chat_id", chatID).Msg("Lobby button failed")
		return c.Respond(&tele.CallbackResponse{Text: msgFailed, ShowAlert: true})
	}

	if err := c.Respond(); err != nil {
		log.Debug().Err(err).Msg("Failed to answer callback")
	}
	if reply == nil || reply.Text == "" {
		return nil
	}
	return c.Send(reply.Text, tele.ModeHTML)
}

// markupFor returns the buttons to attach to the reply of cmd.
func markupFor(cmd Command) *tele.ReplyMarkup {
	if cmd.Action != ActionStart {
		return nil
	}
	return LobbyKeyboard(cmd.Game)
}

var tags = strings.NewReplacer("<b>", "", "</b>", "", "&lt;", "<", "&gt;", ">", "&amp;", "&")

// plainText drops the HTML formatting used in replies, for popups.
func plainText(s string) string {
	return tags.Replace(s)
}

func (h *GameHandler) dispatch(ctx context.Context, cmd Command, chatID, player string) (*game.Reply, error) {
	log.Debug().
		Str("chat_id", chatID).
		Str("user_id", player).
		Str("game", string(cmd.Game)).
		Str("action", string(cmd.Action)).
		Msg("Dispatching command")

	switch cmd.Action {
	case ActionStart:
		return h.engine.Start(ctx, cmd.Game, chatID, player)
	case ActionJoin:
		return h.engine.Join(ctx, cmd.Game, chatID, player)
	case ActionCancel:
		return h.engine.Cancel(ctx, cmd.Game, chatID, player)
	case ActionLeave:
		return h.engine.Leave(ctx, cmd.Game, chatID, player)
	default:
		return nil, game.ErrUnknownGame
	}
}

// respond sends the engine's answer back to the inbound message. Rule
// violations are shown to the player; messages not meant for a game are
// ignored. markup is attached to successful replies when set.
func respond(c tele.Context, reply *game.Reply, err error, markup *tele.ReplyMarkup) error {
	if err == nil {
		if reply == nil || reply.Text == "" {
			return nil
		}
		if markup != nil {
			return c.Reply(reply.Text, tele.ModeHTML, markup)
		}
		return c.Reply(reply.Text, tele.ModeHTML)
	}

	var v *game.Violation
	switch {
	case errors.As(err, &v):
		return c.Reply(v.Reason, tele.ModeHTML)
	case game.IsIgnorable(err):
		return nil
	case errors.Is(err, lock.ErrLockTimeout):
		log.Warn().Err(err).Int64("chat_id", c.Chat().ID).Msg("Game lock timed out")
		return c.Reply(msgBusy)
	default:
		log.Error().Err(err).Int64("chat_id", c.Chat().ID).Msg("Game operation failed")
		return c.Reply(msgFailed)
	}
}

// ids returns the chat and player ids of the message as session keys.
func ids(c tele.Context) (chatID, player string, ok bool) {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return "", "", false
	}
	return strconv.FormatInt(chat.ID, 10), strconv.FormatInt(sender.ID, 10), true
}

// gameTypes lists the game types in registration order.
func gameTypes(registry *game.Registry) []model.GameType {
	rules := registry.List()
	types := make([]model.GameType, 0, len(rules))
	for _, r := range rules {
		types = append(types, r.Type())
	}
	return types
}

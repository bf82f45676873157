package handler

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"chat-game-bot/internal/model"
)

// Action is a lifecycle operation requested from the chat.
type Action string

const (
	ActionStart  Action = "start"
	ActionJoin   Action = "join"
	ActionCancel Action = "cancel"
	ActionLeave  Action = "leave"
)

// Command is a parsed lifecycle command.
type Command struct {
	Action Action
	Game   model.GameType
}

var commands = map[string]Command{
	"ttt":        {ActionStart, model.GameTicTacToe},
	"join-ttt":   {ActionJoin, model.GameTicTacToe},
	"cancel-ttt": {ActionCancel, model.GameTicTacToe},
	"leave-ttt":  {ActionLeave, model.GameTicTacToe},
	"wcg":        {ActionStart, model.GameWordChain},
	"join-wcg":   {ActionJoin, model.GameWordChain},
	"leave-wcg":  {ActionLeave, model.GameWordChain},
}

var lower = cases.Lower(language.Und)

// Normalize trims and lower-cases inbound text.
func Normalize(text string) string {
	return lower.String(strings.TrimSpace(text))
}

// ParseCommand matches normalised text against the command surface. A leading
// slash, a trailing @botname and underscores in place of dashes are accepted,
// so "/join_ttt@gamebot" and "join-ttt" are the same command.
func ParseCommand(text string) (Command, bool) {
	text = Normalize(text)
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return Command{}, false
	}
	text = strings.TrimPrefix(text, "/")
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	cmd, ok := commands[strings.ReplaceAll(text, "_", "-")]
	return cmd, ok
}

// Aliases returns the Telegram command form of every command, such as
// /join_ttt for join-ttt.
func Aliases() map[string]Command {
	aliases := make(map[string]Command, len(commands))
	for name, cmd := range commands {
		aliases["/"+strings.ReplaceAll(name, "-", "_")] = cmd
	}
	return aliases
}

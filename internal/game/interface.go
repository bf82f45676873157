// Package game defines the rule capability every game implements and the
// engine that drives the shared session lifecycle (lobby → active → terminal).
// Adding a game only requires implementing Rules and registering it.
package game

import (
	"context"
	"time"

	"chat-game-bot/internal/model"
)

// MentionFunc renders a player id as a mention in outgoing text.
type MentionFunc func(player string) string

// Standing is one line of a final ranking.
type Standing struct {
	Player     string
	Score      int
	Place      int  // 1-based
	Eliminated bool // Outside the podium
}

// Outcome describes how a session ended.
type Outcome struct {
	Kind      string   // One of the model.Outcome* values
	Winners   []string // Empty for draws and cancelled timeouts
	Loser     string   // Player that lost on time or on the board
	Standings []Standing
}

// Presenter renders the user-facing text of one game type. Mentions must be
// produced through the supplied MentionFunc.
type Presenter interface {
	// Created announces a new lobby.
	Created(s *model.Session, mention MentionFunc) string

	// Joined announces a new player. For games that start on a full lobby the
	// session is already active when this is called.
	Joined(s *model.Session, player string, mention MentionFunc) string

	// Began announces that the lobby closed and the first turn started.
	Began(s *model.Session, mention MentionFunc) string

	// Moved acknowledges an accepted move in a game that continues.
	Moved(s *model.Session, player, move string, mention MentionFunc) string

	// Finished announces the final outcome.
	Finished(s *model.Session, outcome *Outcome, mention MentionFunc) string

	// LobbyExpired announces that the lobby closed without enough players.
	LobbyExpired(s *model.Session, mention MentionFunc) string

	// Left announces that a participant left and the game is over.
	Left(s *model.Session, player string, mention MentionFunc) string

	// Cancelled announces a lobby cancelled by its starter.
	Cancelled(s *model.Session, mention MentionFunc) string
}

// Rules is the capability the engine dispatches to based on the session's
// game type.
type Rules interface {
	Presenter

	// Type returns the game type handled by these rules.
	Type() model.GameType

	// Name returns the display name (e.g. "Tic-Tac-Toe").
	Name() string

	// MinPlayers is the number of players needed when the lobby closes.
	MinPlayers() int

	// MaxPlayers caps the lobby.
	MaxPlayers() int

	// StartsOnFull reports whether the game begins as soon as MaxPlayers
	// joined instead of waiting for the lobby timer.
	StartsOnFull() bool

	// LobbyTimeout is the lobby lifetime. Zero disables the lobby timer.
	LobbyTimeout() time.Duration

	// TurnTimeout is the time the turn holder has to move.
	TurnTimeout() time.Duration

	// NewSession creates the lobby session opened by starter.
	NewSession(chatID, starter string, now time.Time) *model.Session

	// Begin prepares the game-specific state when the lobby closes.
	Begin(s *model.Session, now time.Time)

	// ParseMove reports whether text is a move token for this game and
	// returns it normalised.
	ParseMove(text string) (string, bool)

	// ValidateMove checks a move by the current turn holder. Rule violations
	// are returned as *Violation; s must not be modified.
	ValidateMove(ctx context.Context, s *model.Session, player, move string) error

	// ApplyMove records a validated move. The engine advances the turn.
	ApplyMove(s *model.Session, player, move string, now time.Time)

	// CheckTerminal returns the outcome if the move by player ended the game.
	CheckTerminal(s *model.Session, player string) *Outcome

	// TimeoutOutcome returns the outcome when the turn holder runs out of time.
	TimeoutOutcome(s *model.Session) *Outcome
}

// Notifier delivers messages that are not replies to an inbound message,
// such as timer announcements. It is supplied by the bot host.
type Notifier interface {
	// Send posts text to the chat, notifying the mentioned players.
	Send(ctx context.Context, chatID, text string, mentions []string) error

	// Mention renders a player id for inclusion in text.
	Mention(player string) string
}

// Recorder stores finished games. Failures never affect the game itself.
type Recorder interface {
	Record(ctx context.Context, result *model.GameResult) error
}

// Reply is the text the host should send back to the inbound message.
type Reply struct {
	Text     string
	Mentions []string
}

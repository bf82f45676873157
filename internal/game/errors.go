package game

import (
	"errors"
	"fmt"
)

// Lifecycle errors shared by all games.
var (
	ErrUnknownGame     = errors.New("unknown game type")
	ErrSessionExists   = errors.New("a game is already running in this chat")
	ErrSessionWaiting  = errors.New("a game is already waiting for players in this chat")
	ErrNoSession       = errors.New("no game in this chat")
	ErrNoLobby         = errors.New("no game is waiting for players")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrAlreadyJoined   = errors.New("player already joined")
	ErrLobbyFull       = errors.New("player limit reached")
	ErrNotStarter      = errors.New("only the starter can cancel the game")
	ErrNotParticipant  = errors.New("player is not part of the game")
	ErrNotYourTurn     = errors.New("not the player's turn")
	ErrNoActiveSession = errors.New("no active game accepts this message")
)

// Violation is a recoverable rule violation. Reason is the text shown to the
// player; the session is left untouched.
type Violation struct {
	Err    error
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%v: %s", v.Err, v.Reason)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Reject builds a Violation for err with a formatted reason.
func Reject(err error, format string, args ...any) error {
	return &Violation{Err: err, Reason: fmt.Sprintf(format, args...)}
}

// IsIgnorable reports whether err means the inbound message was not meant for
// any game, so the host should stay silent.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrNoActiveSession) || (errors.Is(err, ErrNotParticipant) && !isViolation(err))
}

func isViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

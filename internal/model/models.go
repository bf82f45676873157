// Package model defines the data models for the chat game bot.
package model

import "time"

// GameType identifies one of the fixed game variants.
type GameType string

// Supported game types. The values double as the command names.
const (
	GameTicTacToe GameType = "ttt"
	GameWordChain GameType = "wcg"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseLobby    Phase = "lobby"    // Waiting for players to join
	PhaseActive   Phase = "active"   // Moves are being exchanged
	PhaseTerminal Phase = "terminal" // About to be deleted, never persisted
)

// Mark is the content of a Tic-Tac-Toe cell.
type Mark int

const (
	MarkEmpty  Mark = iota // Free cell
	MarkCross              // First player (❌)
	MarkNought             // Second player (⭕)
)

// BoardSize is the number of cells on a Tic-Tac-Toe board.
const BoardSize = 9

// Session is one live game bound to a chat. At most one session exists per
// chat and game type; the store persists it as one entry of a JSON object
// keyed by chat id.
type Session struct {
	ChatID    string    `json:"chat_id"`
	Type      GameType  `json:"type"`
	Phase     Phase     `json:"phase"`
	Players   []string  `json:"players"`
	Turn      int       `json:"turn"`
	StartedBy string    `json:"started_by"`
	CreatedAt time.Time `json:"created_at"`

	// Tic-Tac-Toe
	Board []Mark `json:"board,omitempty"`

	// Word Chain
	Words               []string `json:"words,omitempty"`
	WordLimit           int      `json:"word_limit,omitempty"`
	RequiredFirstLetter string   `json:"required_first_letter,omitempty"`
	LastMoveTime        int64    `json:"last_move_time,omitempty"`
}

// CurrentPlayer returns the player whose move is next, or "" if the turn
// index does not point at a player.
func (s *Session) CurrentPlayer() string {
	if s.Turn < 0 || s.Turn >= len(s.Players) {
		return ""
	}
	return s.Players[s.Turn]
}

// HasPlayer reports whether the player takes part in the session.
func (s *Session) HasPlayer(player string) bool {
	for _, p := range s.Players {
		if p == player {
			return true
		}
	}
	return false
}

// AdvanceTurn moves the turn to the next player in join order.
func (s *Session) AdvanceTurn() {
	if len(s.Players) == 0 {
		return
	}
	s.Turn = (s.Turn + 1) % len(s.Players)
}

// Clone returns a deep copy so rule checks can run against a snapshot.
func (s *Session) Clone() *Session {
	c := *s
	c.Players = append([]string(nil), s.Players...)
	if s.Board != nil {
		c.Board = append([]Mark(nil), s.Board...)
	}
	if s.Words != nil {
		c.Words = append([]string(nil), s.Words...)
	}
	return &c
}

// Outcome kinds recorded in the result history.
const (
	OutcomeWin       = "win"       // A single winner (Tic-Tac-Toe line)
	OutcomeDraw      = "draw"      // Board filled without a line
	OutcomeTimeout   = "timeout"   // Turn holder ran out of time
	OutcomeCompleted = "completed" // Word Chain reached its word target
)

// GameResult is a finished game as stored in the history table.
type GameResult struct {
	ID         int64     `db:"id"`
	ChatID     string    `db:"chat_id"`
	GameType   GameType  `db:"game_type"`
	Outcome    string    `db:"outcome"`
	Players    []string  `db:"players"`
	Winners    []string  `db:"winners"`
	Loser      *string   `db:"loser"`
	Words      int       `db:"words"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

// PlayerWins is one leaderboard line: how many games a player won in a chat.
type PlayerWins struct {
	PlayerID string `db:"player_id"`
	Wins     int64  `db:"wins"`
}

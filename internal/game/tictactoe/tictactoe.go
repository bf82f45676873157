// Package tictactoe implements the two-player Tic-Tac-Toe game.
package tictactoe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
)

const (
	// DefaultTurnTimeout is the time a player has to make a move.
	DefaultTurnTimeout = 10 * time.Minute

	// DefaultLobbyTimeout is the time the starter waits for an opponent.
	DefaultLobbyTimeout = 10 * time.Minute
)

// Errors for tic-tac-toe
var (
	ErrInvalidCell = errors.New("cell must be between 1 and 9")
	ErrCellTaken   = errors.New("cell already taken")
)

// winLines are the rows, columns and diagonals of the board.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Config holds configuration for tic-tac-toe.
type Config struct {
	TurnTimeout  time.Duration
	LobbyTimeout time.Duration
}

// TicTacToe implements game.Rules.
type TicTacToe struct {
	turnTimeout  time.Duration
	lobbyTimeout time.Duration
}

// New creates the game with the given configuration. Zero values fall back
// to the defaults.
func New(cfg *Config) *TicTacToe {
	g := &TicTacToe{
		turnTimeout:  DefaultTurnTimeout,
		lobbyTimeout: DefaultLobbyTimeout,
	}
	if cfg != nil {
		if cfg.TurnTimeout > 0 {
			g.turnTimeout = cfg.TurnTimeout
		}
		if cfg.LobbyTimeout > 0 {
			g.lobbyTimeout = cfg.LobbyTimeout
		}
	}
	return g
}

func (g *TicTacToe) Type() model.GameType        { return model.GameTicTacToe }
func (g *TicTacToe) Name() string                { return "Tic-Tac-Toe" }
func (g *TicTacToe) MinPlayers() int             { return 2 }
func (g *TicTacToe) MaxPlayers() int             { return 2 }
func (g *TicTacToe) StartsOnFull() bool          { return true }
func (g *TicTacToe) LobbyTimeout() time.Duration { return g.lobbyTimeout }
func (g *TicTacToe) TurnTimeout() time.Duration  { return g.turnTimeout }

// NewSession opens a lobby with an empty board.
func (g *TicTacToe) NewSession(chatID, starter string, now time.Time) *model.Session {
	return &model.Session{
		ChatID:    chatID,
		Type:      model.GameTicTacToe,
		Phase:     model.PhaseLobby,
		Players:   []string{starter},
		StartedBy: starter,
		CreatedAt: now,
		Board:     make([]model.Mark, model.BoardSize),
	}
}

// Begin makes sure the board is ready. The first player plays ❌.
func (g *TicTacToe) Begin(s *model.Session, _ time.Time) {
	if len(s.Board) != model.BoardSize {
		s.Board = make([]model.Mark, model.BoardSize)
	}
}

// ParseMove accepts a bare cell number 1-9.
func (g *TicTacToe) ParseMove(text string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > model.BoardSize {
		return "", false
	}
	return strconv.Itoa(n), true
}

// ValidateMove checks that the cell exists and is free.
func (g *TicTacToe) ValidateMove(_ context.Context, s *model.Session, _, move string) error {
	n, err := strconv.Atoi(move)
	if err != nil || n < 1 || n > model.BoardSize || len(s.Board) != model.BoardSize {
		return game.Reject(ErrInvalidCell, "⚠️ Send a number from 1 to 9.")
	}
	if s.Board[n-1] != model.MarkEmpty {
		return game.Reject(ErrCellTaken, "⚠️ This cell is already taken. Choose another one.")
	}
	return nil
}

// ApplyMove places the turn holder's mark.
func (g *TicTacToe) ApplyMove(s *model.Session, _, move string, _ time.Time) {
	n, _ := strconv.Atoi(move)
	s.Board[n-1] = MarkFor(s.Turn)
}

// CheckTerminal reports a win for the mover before checking for a draw.
func (g *TicTacToe) CheckTerminal(s *model.Session, player string) *game.Outcome {
	mark := MarkFor(s.Turn)
	if CheckWin(s.Board, mark) {
		return &game.Outcome{
			Kind:    model.OutcomeWin,
			Winners: []string{player},
			Loser:   opponent(s, player),
		}
	}
	if CheckDraw(s.Board) {
		return &game.Outcome{Kind: model.OutcomeDraw}
	}
	return nil
}

// TimeoutOutcome cancels the game without a winner.
func (g *TicTacToe) TimeoutOutcome(s *model.Session) *game.Outcome {
	return &game.Outcome{
		Kind:  model.OutcomeTimeout,
		Loser: s.CurrentPlayer(),
	}
}

// MarkFor returns the mark of the player at turn index turn.
func MarkFor(turn int) model.Mark {
	if turn == 0 {
		return model.MarkCross
	}
	return model.MarkNought
}

// CheckWin reports whether mark fills any line of the board.
func CheckWin(board []model.Mark, mark model.Mark) bool {
	if len(board) != model.BoardSize || mark == model.MarkEmpty {
		return false
	}
	for _, line := range winLines {
		if board[line[0]] == mark && board[line[1]] == mark && board[line[2]] == mark {
			return true
		}
	}
	return false
}

// CheckDraw reports whether every cell is taken.
func CheckDraw(board []model.Mark) bool {
	for _, c := range board {
		if c == model.MarkEmpty {
			return false
		}
	}
	return len(board) == model.BoardSize
}

func opponent(s *model.Session, player string) string {
	for _, p := range s.Players {
		if p != player {
			return p
		}
	}
	return ""
}

// =============================================================================
// Presentation
// =============================================================================

var keycaps = [model.BoardSize]string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

const boardSeparator = "┄┄┄┄┄┄┄┄┄┄┄"

// Symbol returns the emoji of a mark.
func Symbol(m model.Mark) string {
	switch m {
	case model.MarkCross:
		return "❌"
	case model.MarkNought:
		return "⭕"
	default:
		return " "
	}
}

// RenderBoard draws the board, showing cell numbers for free cells.
func RenderBoard(board []model.Mark) string {
	rows := make([]string, 0, 3)
	for r := 0; r < 3; r++ {
		cells := make([]string, 0, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			if i < len(board) && board[i] != model.MarkEmpty {
				cells = append(cells, Symbol(board[i]))
			} else {
				cells = append(cells, keycaps[i])
			}
		}
		rows = append(rows, "┃ "+strings.Join(cells, " ┃ ")+" ┃")
	}
	return boardSeparator + "\n" + strings.Join(rows, "\n"+boardSeparator+"\n") + "\n" + boardSeparator
}

func (g *TicTacToe) status(s *model.Session, mention game.MentionFunc) string {
	var sb strings.Builder
	sb.WriteString("🎮 <b>TIC-TAC-TOE</b> 🎮\n\n")
	if len(s.Players) == 2 {
		fmt.Fprintf(&sb, "Game between %s (❌) and %s (⭕)\n\n", mention(s.Players[0]), mention(s.Players[1]))
	}
	sb.WriteString(RenderBoard(s.Board))
	fmt.Fprintf(&sb, "\n\n%s's turn (%s)\n\n", mention(s.CurrentPlayer()), Symbol(MarkFor(s.Turn)))
	sb.WriteString("Send a number (1-9) to make your move.")
	return sb.String()
}

func (g *TicTacToe) Created(s *model.Session, mention game.MentionFunc) string {
	return fmt.Sprintf("🎮 <b>Tic-Tac-Toe</b> game started!\n\n"+
		"👤 Player 1: %s\n"+
		"⏳ Waiting for player 2 to join...\n\n"+
		"✉️ Send <b>join-ttt</b> to join the game!\n"+
		"Send <b>cancel-ttt</b> to cancel it or <b>leave-ttt</b> to leave.",
		mention(s.Players[0]))
}

func (g *TicTacToe) Joined(s *model.Session, player string, mention game.MentionFunc) string {
	return fmt.Sprintf("🎮 Player 2 %s joined the game!\n\n%s", mention(player), g.status(s, mention))
}

func (g *TicTacToe) Began(s *model.Session, mention game.MentionFunc) string {
	return g.status(s, mention)
}

func (g *TicTacToe) Moved(s *model.Session, _, _ string, mention game.MentionFunc) string {
	return g.status(s, mention)
}

func (g *TicTacToe) Finished(s *model.Session, o *game.Outcome, mention game.MentionFunc) string {
	switch o.Kind {
	case model.OutcomeWin:
		winner := o.Winners[0]
		mark := model.MarkCross
		if len(s.Players) > 1 && s.Players[1] == winner {
			mark = model.MarkNought
		}
		return fmt.Sprintf("🏆 <b>TIC-TAC-TOE RESULT</b> 🏆\n\n"+
			"🎉 Congratulations %s!\n"+
			"You won the game playing as %s.\n\n%s",
			mention(winner), Symbol(mark), RenderBoard(s.Board))
	case model.OutcomeDraw:
		return "🤝 The game ended in a draw.\n\n" + RenderBoard(s.Board)
	default:
		return fmt.Sprintf("⌛️ <b>Game timed out!</b>\n"+
			"No move was made within %s.\n"+
			"Game between %s cancelled.",
			game.FormatDuration(g.turnTimeout), game.MentionAll(s.Players, mention, " and "))
	}
}

func (g *TicTacToe) LobbyExpired(_ *model.Session, _ game.MentionFunc) string {
	return fmt.Sprintf("⌛️ Game cancelled due to no player 2 joining in %s.", game.FormatDuration(g.lobbyTimeout))
}

func (g *TicTacToe) Left(_ *model.Session, player string, mention game.MentionFunc) string {
	return fmt.Sprintf("🚪 %s left the game. Game cancelled.", mention(player))
}

func (g *TicTacToe) Cancelled(_ *model.Session, _ game.MentionFunc) string {
	return "❌ Game cancelled successfully."
}

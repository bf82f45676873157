// Package wordchain implements the multi-player Word Chain game: every word
// must start with the last letter of the previous one and be a real English
// word according to the dictionary.
package wordchain

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
)

const (
	DefaultLobbyTimeout  = 40 * time.Second
	DefaultTurnTimeout   = 40 * time.Second
	DefaultMinPlayers    = 2
	DefaultMaxPlayers    = 20
	DefaultMinWordLength = 3
	DefaultMaxWordLength = 7
	DefaultTargetWords   = 10

	// podium is the number of places that are not marked as lost.
	podium = 3
)

// Errors for word chain, in the order the checks run.
var (
	ErrNotAWord    = errors.New("only alphabetic words are allowed")
	ErrTooShort    = errors.New("word is shorter than the current limit")
	ErrWordUsed    = errors.New("word already used")
	ErrUnknownWord = errors.New("not a valid English word")
	ErrWrongLetter = errors.New("word starts with the wrong letter")
)

var wordPattern = regexp.MustCompile(`^[a-z]{2,}$`)

// Oracle decides whether a word exists. Lookup failures count as invalid.
type Oracle interface {
	IsValid(ctx context.Context, word string) bool
}

// Config holds configuration for word chain.
type Config struct {
	LobbyTimeout  time.Duration
	TurnTimeout   time.Duration
	MinPlayers    int
	MaxPlayers    int
	MinWordLength int
	MaxWordLength int
	TargetWords   int

	// FirstLetter picks the letter the first word must start with.
	// Defaults to a uniformly random letter a-z.
	FirstLetter func() string
}

// WordChain implements game.Rules.
type WordChain struct {
	oracle        Oracle
	lobbyTimeout  time.Duration
	turnTimeout   time.Duration
	minPlayers    int
	maxPlayers    int
	minWordLength int
	maxWordLength int
	targetWords   int
	firstLetter   func() string
}

// New creates the game backed by oracle. Zero config values fall back to
// the defaults.
func New(oracle Oracle, cfg *Config) *WordChain {
	g := &WordChain{
		oracle:        oracle,
		lobbyTimeout:  DefaultLobbyTimeout,
		turnTimeout:   DefaultTurnTimeout,
		minPlayers:    DefaultMinPlayers,
		maxPlayers:    DefaultMaxPlayers,
		minWordLength: DefaultMinWordLength,
		maxWordLength: DefaultMaxWordLength,
		targetWords:   DefaultTargetWords,
		firstLetter:   randomLetter,
	}
	if cfg == nil {
		return g
	}
	if cfg.LobbyTimeout > 0 {
		g.lobbyTimeout = cfg.LobbyTimeout
	}
	if cfg.TurnTimeout > 0 {
		g.turnTimeout = cfg.TurnTimeout
	}
	if cfg.MinPlayers > 0 {
		g.minPlayers = cfg.MinPlayers
	}
	if cfg.MaxPlayers > 0 {
		g.maxPlayers = cfg.MaxPlayers
	}
	if g.maxPlayers < g.minPlayers {
		g.maxPlayers = g.minPlayers
	}
	if cfg.MinWordLength > 0 {
		g.minWordLength = cfg.MinWordLength
	}
	if cfg.MaxWordLength > 0 {
		g.maxWordLength = cfg.MaxWordLength
	}
	if g.maxWordLength < g.minWordLength {
		g.maxWordLength = g.minWordLength
	}
	if cfg.TargetWords > 0 {
		g.targetWords = cfg.TargetWords
	}
	if cfg.FirstLetter != nil {
		g.firstLetter = cfg.FirstLetter
	}
	return g
}

func randomLetter() string {
	return string(rune('a' + rand.Intn(26)))
}

func (g *WordChain) Type() model.GameType        { return model.GameWordChain }
func (g *WordChain) Name() string                { return "Word Chain" }
func (g *WordChain) MinPlayers() int             { return g.minPlayers }
func (g *WordChain) MaxPlayers() int             { return g.maxPlayers }
func (g *WordChain) StartsOnFull() bool          { return false }
func (g *WordChain) LobbyTimeout() time.Duration { return g.lobbyTimeout }
func (g *WordChain) TurnTimeout() time.Duration  { return g.turnTimeout }

// NewSession opens a lobby. Only the lobby timer moves it to the active phase.
func (g *WordChain) NewSession(chatID, starter string, now time.Time) *model.Session {
	return &model.Session{
		ChatID:    chatID,
		Type:      model.GameWordChain,
		Phase:     model.PhaseLobby,
		Players:   []string{starter},
		StartedBy: starter,
		CreatedAt: now,
		WordLimit: g.minWordLength,
	}
}

// Begin draws the first letter.
func (g *WordChain) Begin(s *model.Session, _ time.Time) {
	s.RequiredFirstLetter = strings.ToLower(g.firstLetter())
	if s.WordLimit < g.minWordLength {
		s.WordLimit = g.minWordLength
	}
}

// ParseMove accepts any single token that is not a command. Whether it is a
// usable word is decided by ValidateMove so the player gets told why not.
func (g *WordChain) ParseMove(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || strings.HasPrefix(text, "/") || strings.ContainsAny(text, " \t\r\n") {
		return "", false
	}
	return text, true
}

// ValidateMove runs the word checks in order and stops at the first failure.
func (g *WordChain) ValidateMove(ctx context.Context, s *model.Session, _, word string) error {
	if !wordPattern.MatchString(word) {
		return game.Reject(ErrNotAWord, "⚠️ Only alphabetic English words are allowed.")
	}
	if len(word) < s.WordLimit {
		return game.Reject(ErrTooShort, "📏 Word must be at least <b>%d</b> letters.", s.WordLimit)
	}
	for _, used := range s.Words {
		if used == word {
			return game.Reject(ErrWordUsed, "♻️ Word already used!")
		}
	}
	if g.oracle == nil || !g.oracle.IsValid(ctx, word) {
		return game.Reject(ErrUnknownWord, "❌ Not a valid English word!")
	}
	if want := NextLetter(s); want != "" && !strings.HasPrefix(word, want) {
		if len(s.Words) == 0 {
			return game.Reject(ErrWrongLetter, "🔤 First word must start with <b>%s</b>", strings.ToUpper(want))
		}
		return game.Reject(ErrWrongLetter, "🔁 Word must start with <b>%s</b>", strings.ToUpper(want))
	}
	return nil
}

// ApplyMove appends the word and raises the length limit.
func (g *WordChain) ApplyMove(s *model.Session, _, word string, now time.Time) {
	s.Words = append(s.Words, word)
	s.WordLimit = min(s.WordLimit+1, g.maxWordLength)
	s.LastMoveTime = now.UnixMilli()
}

// CheckTerminal completes the game once the target number of words is reached.
func (g *WordChain) CheckTerminal(s *model.Session, _ string) *game.Outcome {
	if len(s.Words) < g.targetWords {
		return nil
	}
	standings := Rank(s.Players, len(s.Words))
	return &game.Outcome{
		Kind:      model.OutcomeCompleted,
		Winners:   leaders(standings),
		Standings: standings,
	}
}

// TimeoutOutcome makes the turn holder lose; everybody else wins.
func (g *WordChain) TimeoutOutcome(s *model.Session) *game.Outcome {
	loser := s.CurrentPlayer()
	winners := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		if p != loser {
			winners = append(winners, p)
		}
	}
	return &game.Outcome{
		Kind:    model.OutcomeTimeout,
		Winners: winners,
		Loser:   loser,
	}
}

// NextLetter returns the letter the next word must start with.
func NextLetter(s *model.Session) string {
	if n := len(s.Words); n > 0 {
		last := s.Words[n-1]
		return last[len(last)-1:]
	}
	return s.RequiredFirstLetter
}

// Rank credits word i to player i mod len(players) and orders players by
// word count, keeping join order between equal counts.
func Rank(players []string, words int) []game.Standing {
	if len(players) == 0 {
		return nil
	}
	counts := make([]int, len(players))
	for i := 0; i < words; i++ {
		counts[i%len(players)]++
	}

	standings := make([]game.Standing, len(players))
	for i, p := range players {
		standings[i] = game.Standing{Player: p, Score: counts[i]}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	for i := range standings {
		standings[i].Place = i + 1
		standings[i].Eliminated = i >= podium
	}
	return standings
}

func leaders(standings []game.Standing) []string {
	if len(standings) == 0 {
		return nil
	}
	var winners []string
	for _, st := range standings {
		if st.Score != standings[0].Score {
			break
		}
		winners = append(winners, st.Player)
	}
	return winners
}

package wordchain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
)

// dictionary is an in-memory Oracle.
type dictionary map[string]bool

func (d dictionary) IsValid(_ context.Context, word string) bool {
	return d[word]
}

// anyWord accepts every word.
type anyWord struct{}

func (anyWord) IsValid(context.Context, string) bool { return true }

func mention(p string) string { return "@" + p }

func fixedLetter(l string) func() string {
	return func() string { return l }
}

func begun(g *WordChain, players ...string) *model.Session {
	s := g.NewSession("-200", players[0], time.Unix(0, 0))
	s.Players = append(s.Players, players[1:]...)
	s.Phase = model.PhaseActive
	g.Begin(s, time.Unix(0, 0))
	return s
}

// accept validates and applies a word the way the engine does.
func accept(t *testing.T, g *WordChain, s *model.Session, word string) *game.Outcome {
	t.Helper()
	player := s.CurrentPlayer()
	move, ok := g.ParseMove(word)
	require.True(t, ok)
	require.NoError(t, g.ValidateMove(context.Background(), s, player, move))
	g.ApplyMove(s, player, move, time.Now())
	o := g.CheckTerminal(s, player)
	if o == nil {
		s.AdvanceTurn()
	}
	return o
}

// =============================================================================
// Configuration
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	g := New(anyWord{}, nil)
	assert.Equal(t, DefaultLobbyTimeout, g.LobbyTimeout())
	assert.Equal(t, DefaultTurnTimeout, g.TurnTimeout())
	assert.Equal(t, DefaultMinPlayers, g.MinPlayers())
	assert.Equal(t, DefaultMaxPlayers, g.MaxPlayers())
	assert.False(t, g.StartsOnFull())

	s := g.NewSession("-200", "a", time.Now())
	assert.Equal(t, DefaultMinWordLength, s.WordLimit)
	assert.Equal(t, model.PhaseLobby, s.Phase)
}

func TestBegin_DrawsFirstLetter(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("Q")})
	s := begun(g, "a", "b")
	assert.Equal(t, "q", s.RequiredFirstLetter)
	assert.Equal(t, "q", NextLetter(s))

	for i := 0; i < 50; i++ {
		l := randomLetter()
		require.Len(t, l, 1)
		require.True(t, l[0] >= 'a' && l[0] <= 'z', "letter %q", l)
	}
}

// =============================================================================
// Move checks
// =============================================================================

func TestParseMove(t *testing.T) {
	g := New(anyWord{}, nil)

	word, ok := g.ParseMove("  Tiger ")
	assert.True(t, ok)
	assert.Equal(t, "tiger", word)

	for _, text := range []string{"", "   ", "two words", "/gamestats"} {
		_, ok := g.ParseMove(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestValidateMove_CheckOrder(t *testing.T) {
	oracle := dictionary{"cat": true, "tiger": true, "rat": true, "tea": true}
	g := New(oracle, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")
	ctx := context.Background()

	tests := []struct {
		name string
		word string
		want error
	}{
		{"digits", "c4t", ErrNotAWord},
		{"single letter", "c", ErrNotAWord},
		{"too short", "ca", ErrTooShort},
		{"not in dictionary", "cxz", ErrUnknownWord},
		{"wrong first letter", "rat", ErrWrongLetter},
		{"valid", "cat", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateMove(ctx, s, "a", tt.word)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			var v *game.Violation
			assert.True(t, errors.As(err, &v))
		})
	}
}

func TestValidateMove_OracleBeforeChainLetter(t *testing.T) {
	var asked []string
	g := New(oracleFunc(func(word string) bool {
		asked = append(asked, word)
		return false
	}), &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")

	err := g.ValidateMove(context.Background(), s, "a", "dog")
	assert.ErrorIs(t, err, ErrUnknownWord)
	assert.Equal(t, []string{"dog"}, asked)
}

func TestValidateMove_NilOracleRejects(t *testing.T) {
	g := New(nil, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")
	assert.ErrorIs(t, g.ValidateMove(context.Background(), s, "a", "cat"), ErrUnknownWord)
}

func TestChainLetterMismatch_StateUnchanged(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")
	accept(t, g, s, "cat")

	before := s.Clone()
	err := g.ValidateMove(context.Background(), s, "b", "dogma")
	require.ErrorIs(t, err, ErrWrongLetter)

	var v *game.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "🔁 Word must start with <b>T</b>", v.Reason)
	assert.Equal(t, before, s)
}

func TestScenario_DuplicateWord(t *testing.T) {
	oracle := dictionary{"cat": true, "tiger": true}
	g := New(oracle, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")

	accept(t, g, s, "cat")
	assert.Equal(t, 4, s.WordLimit)
	accept(t, g, s, "tiger")
	assert.Equal(t, 5, s.WordLimit)
	assert.Equal(t, "a", s.CurrentPlayer())

	err := g.ValidateMove(context.Background(), s, "a", "tiger")
	assert.ErrorIs(t, err, ErrWordUsed)
	assert.Equal(t, []string{"cat", "tiger"}, s.Words)
	assert.Equal(t, "a", s.CurrentPlayer())
}

func TestApplyMove_StampsLastMoveTime(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a")
	now := time.UnixMilli(1700000000123)
	g.ApplyMove(s, "a", "cat", now)
	assert.Equal(t, int64(1700000000123), s.LastMoveTime)
}

// =============================================================================
// Outcomes
// =============================================================================

func TestRank(t *testing.T) {
	tests := []struct {
		name    string
		players []string
		words   int
		want    []game.Standing
	}{
		{
			name:    "uneven split keeps join order on ties",
			players: []string{"a", "b", "c", "d"},
			words:   10,
			want: []game.Standing{
				{Player: "a", Score: 3, Place: 1},
				{Player: "b", Score: 3, Place: 2},
				{Player: "c", Score: 2, Place: 3},
				{Player: "d", Score: 2, Place: 4, Eliminated: true},
			},
		},
		{
			name:    "single player",
			players: []string{"a"},
			words:   10,
			want:    []game.Standing{{Player: "a", Score: 10, Place: 1}},
		},
		{
			name:    "no players",
			players: nil,
			words:   10,
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.players, tt.words))
		})
	}
}

func TestCompletesAtTargetWords(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("a"), TargetWords: 4})
	s := begun(g, "a", "b", "c")

	for _, w := range []string{"ant", "tape", "eagle"} {
		require.Nil(t, accept(t, g, s, w))
	}
	o := accept(t, g, s, "eeriest")
	require.NotNil(t, o)
	assert.Equal(t, model.OutcomeCompleted, o.Kind)
	assert.Equal(t, []string{"a"}, o.Winners)
	require.Len(t, o.Standings, 3)

	text := g.Finished(s, o, mention)
	assert.Contains(t, text, "🥇 <b>1.</b> @a: 2 words")
	assert.Contains(t, text, "🥈 <b>2.</b> @b: 1 word")
	assert.Contains(t, text, "🥉 <b>3.</b> @c: 1 word")
}

func TestFinished_MarksLostPlayers(t *testing.T) {
	g := New(anyWord{}, nil)
	players := []string{"a", "b", "c", "d", "e"}
	o := &game.Outcome{Kind: model.OutcomeCompleted, Standings: Rank(players, 10)}
	text := g.Finished(&model.Session{Players: players}, o, mention)
	assert.Contains(t, text, "❌ <b>4.</b> @d: 2 words (Lost)")
	assert.Contains(t, text, "❌ <b>5.</b> @e: 2 words (Lost)")
}

func TestTimeoutOutcome_OthersWin(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b", "c")
	accept(t, g, s, "cat")

	o := g.TimeoutOutcome(s)
	assert.Equal(t, model.OutcomeTimeout, o.Kind)
	assert.Equal(t, "b", o.Loser)
	assert.Equal(t, []string{"a", "c"}, o.Winners)
	assert.Equal(t, "⌛ <b>Timeout!</b>\n@b took too long.\n🏆 Winner(s): @a, @c", g.Finished(s, o, mention))

	solo := begun(g, "a")
	o = g.TimeoutOutcome(solo)
	assert.Empty(t, o.Winners)
	assert.Contains(t, g.Finished(solo, o, mention), "Winner(s): none")
}

func TestMessages(t *testing.T) {
	g := New(anyWord{}, &Config{FirstLetter: fixedLetter("c")})
	s := begun(g, "a", "b")

	assert.Contains(t, g.Created(s, mention), "Player 1: @a")
	assert.Contains(t, g.Joined(s, "b", mention), "@b joined the game! (2 player(s) now)")
	assert.Contains(t, g.Began(s, mention), "First letter: <b>C</b>")

	accept(t, g, s, "cat")
	moved := g.Moved(s, "a", "cat", mention)
	assert.Contains(t, moved, "<b>cat</b> accepted!")
	assert.Contains(t, moved, "Next word must start with <b>T</b>")
	assert.Contains(t, moved, "@b, your turn!")
	assert.Contains(t, moved, "You have <b>40 seconds</b> to respond.")

	assert.Contains(t, g.LobbyExpired(&model.Session{Players: []string{"a"}}, mention), "Only 1 player(s) joined")
}

// =============================================================================
// Properties
// =============================================================================

// TestWordLimitProperty checks that word_limit never decreases and never
// exceeds the maximum, whatever sequence of words is accepted.
func TestWordLimitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := New(anyWord{}, &Config{
			FirstLetter: fixedLetter("a"),
			TargetWords: 1000,
		})
		n := rapid.IntRange(1, 5).Draw(t, "players")
		players := make([]string, n)
		for i := range players {
			players[i] = string(rune('a' + i))
		}
		s := begun(g, players...)
		ctx := context.Background()

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			tail := rapid.StringMatching(`[a-z]{1,9}`).Draw(t, "tail")
			word := NextLetter(s) + tail
			prev := s.WordLimit

			if err := g.ValidateMove(ctx, s, s.CurrentPlayer(), word); err != nil {
				if s.WordLimit != prev {
					t.Fatalf("rejected word changed word_limit")
				}
				continue
			}
			g.ApplyMove(s, s.CurrentPlayer(), word, time.Now())
			s.AdvanceTurn()

			if s.WordLimit < prev {
				t.Fatalf("word_limit decreased from %d to %d", prev, s.WordLimit)
			}
			if s.WordLimit > DefaultMaxWordLength {
				t.Fatalf("word_limit %d exceeds %d", s.WordLimit, DefaultMaxWordLength)
			}
			if !strings.HasPrefix(word, string(s.Words[len(s.Words)-1][0])) {
				t.Fatalf("accepted word %q not recorded", word)
			}
		}
	})
}

// TestRankProperty checks that every word is credited and places are ordered.
func TestRankProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "players")
		words := rapid.IntRange(0, 50).Draw(t, "words")
		players := make([]string, n)
		for i := range players {
			players[i] = string(rune('A' + i))
		}

		standings := Rank(players, words)
		total := 0
		for i, st := range standings {
			total += st.Score
			if st.Place != i+1 {
				t.Fatalf("place %d at index %d", st.Place, i)
			}
			if st.Eliminated != (st.Place > 3) {
				t.Fatalf("place %d eliminated=%v", st.Place, st.Eliminated)
			}
			if i > 0 && standings[i-1].Score < st.Score {
				t.Fatalf("ranking not descending at %d", i)
			}
		}
		if total != words {
			t.Fatalf("credited %d of %d words", total, words)
		}
	})
}

type oracleFunc func(word string) bool

func (f oracleFunc) IsValid(_ context.Context, word string) bool { return f(word) }

package wordchain

import (
	"fmt"
	"strings"

	"chat-game-bot/internal/game"
	"chat-game-bot/internal/model"
)

var medals = [podium]string{"🥇", "🥈", "🥉"}

func (g *WordChain) Created(s *model.Session, mention game.MentionFunc) string {
	return fmt.Sprintf("🎮 <b>Word Chain Game Started!</b>\n"+
		"👤 Player 1: %s\n"+
		"⏳ Waiting for more players (up to %d)...\n"+
		"Send <b>join-wcg</b> to join.",
		mention(s.Players[0]), g.maxPlayers)
}

func (g *WordChain) Joined(s *model.Session, player string, mention game.MentionFunc) string {
	return fmt.Sprintf("🙌 %s joined the game! (%d player(s) now)\n"+
		"⏳ The game starts %s after it was opened.",
		mention(player), len(s.Players), game.FormatDuration(g.lobbyTimeout))
}

func (g *WordChain) Began(s *model.Session, mention game.MentionFunc) string {
	letter := strings.ToUpper(s.RequiredFirstLetter)
	return fmt.Sprintf("⏳ Time's up! Game is starting with %d player(s).\n"+
		"🧠 <b>Word Chain Begins!</b>\n"+
		"🎯 %s starts.\n"+
		"🔤 First letter: <b>%s</b>\n"+
		"📌 Send an English word starting with <b>%s</b> and at least <b>%d letters</b>",
		len(s.Players), mention(s.CurrentPlayer()), letter, letter, s.WordLimit)
}

func (g *WordChain) Moved(s *model.Session, _, word string, mention game.MentionFunc) string {
	return fmt.Sprintf("✅ <b>%s</b> accepted!\n"+
		"🧮 Word <b>%d</b> of %d.\n"+
		"🔠 Next word must start with <b>%s</b>\n"+
		"➡️ %s, your turn!\n"+
		"📏 Min word length: <b>%d</b>\n"+
		"⏳ You have <b>%s</b> to respond.",
		word, len(s.Words), g.targetWords, strings.ToUpper(NextLetter(s)),
		mention(s.CurrentPlayer()), s.WordLimit, game.FormatDuration(g.turnTimeout))
}

func (g *WordChain) Finished(_ *model.Session, o *game.Outcome, mention game.MentionFunc) string {
	if o.Kind == model.OutcomeTimeout {
		winners := "none"
		if len(o.Winners) > 0 {
			winners = game.MentionAll(o.Winners, mention, ", ")
		}
		return fmt.Sprintf("⌛ <b>Timeout!</b>\n%s took too long.\n🏆 Winner(s): %s", mention(o.Loser), winners)
	}

	var sb strings.Builder
	sb.WriteString("🏁 <b>Game Over!</b>\n\n<b>Ranking:</b>\n")
	for _, st := range o.Standings {
		if st.Eliminated {
			fmt.Fprintf(&sb, "❌ <b>%d.</b> %s: %s (Lost)\n", st.Place, mention(st.Player), words(st.Score))
			continue
		}
		fmt.Fprintf(&sb, "%s <b>%d.</b> %s: %s\n", medals[st.Place-1], st.Place, mention(st.Player), words(st.Score))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (g *WordChain) LobbyExpired(s *model.Session, _ game.MentionFunc) string {
	return fmt.Sprintf("⌛ Time's up! Only %d player(s) joined, at least %d are needed. Word Chain game cancelled.",
		len(s.Players), g.minPlayers)
}

func (g *WordChain) Left(_ *model.Session, player string, mention game.MentionFunc) string {
	return fmt.Sprintf("🚪 %s left the game. Word Chain game over.", mention(player))
}

func (g *WordChain) Cancelled(_ *model.Session, _ game.MentionFunc) string {
	return "❌ Word Chain game cancelled."
}

func words(n int) string {
	if n == 1 {
		return "1 word"
	}
	return fmt.Sprintf("%d words", n)
}

package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot used to post messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier posts game announcements that are not replies, such as timer
// results. Mentions are HTML user links, which notify the mentioned users.
type Notifier struct {
	sender    Sender
	directory *Directory
}

// NewNotifier creates a Notifier sending through s.
func NewNotifier(s Sender, directory *Directory) *Notifier {
	return &Notifier{sender: s, directory: directory}
}

// Send posts text to the chat in HTML mode.
func (n *Notifier) Send(ctx context.Context, chatID, text string, mentions []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	if _, err := n.sender.Send(tele.ChatID(id), text, tele.ModeHTML); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	log.Debug().
		Int64("chat_id", id).
		Int("mentions", len(mentions)).
		Msg("Announcement sent")
	return nil
}

// Mention renders a player id as a user link.
func (n *Notifier) Mention(player string) string {
	return n.directory.Mention(player)
}

package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const (
	// DefaultDirectorySize bounds the number of users remembered.
	DefaultDirectorySize = 10000

	// saveTimeout bounds a name write to the player store.
	saveTimeout = 3 * time.Second
)

// PlayerStore keeps display names across restarts.
type PlayerStore interface {
	Upsert(ctx context.Context, telegramID int64, displayName string) error
	Names(ctx context.Context, telegramIDs []int64) (map[int64]string, error)
}

// Directory remembers the display names of users seen in allowed chats, so
// timer announcements can mention players by name, and tracks which users
// may talk to the bot in private.
type Directory struct {
	names   *lru.Cache[int64, string]
	private *lru.Cache[int64, struct{}]
	players PlayerStore
}

// NewDirectory creates a Directory holding at most size users in memory.
// players is optional; when set, names survive restarts.
func NewDirectory(size int, players PlayerStore) (*Directory, error) {
	if size <= 0 {
		size = DefaultDirectorySize
	}
	names, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create name cache: %w", err)
	}
	private, err := lru.New[int64, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create private user cache: %w", err)
	}
	return &Directory{names: names, private: private, players: players}, nil
}

// Remember stores the display name of u. The player store is only written
// when the name changed.
func (d *Directory) Remember(u *tele.User) {
	if u == nil {
		return
	}
	name := displayName(u)
	if old, ok := d.names.Get(u.ID); ok && old == name {
		return
	}
	d.names.Add(u.ID, name)

	if d.players == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := d.players.Upsert(ctx, u.ID, name); err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("Failed to save player name")
	}
}

// Preload loads the names of players missing from memory from the player
// store, so they can be mentioned by name.
func (d *Directory) Preload(ctx context.Context, players []string) {
	if d.players == nil {
		return
	}
	missing := make([]int64, 0, len(players))
	for _, p := range players {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || d.names.Contains(id) {
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return
	}

	names, err := d.players.Names(ctx, missing)
	if err != nil {
		log.Warn().Err(err).Int("players", len(missing)).Msg("Failed to load player names")
		return
	}
	for id, name := range names {
		d.names.Add(id, name)
	}
}

// Name returns the remembered display name of the user, if any.
func (d *Directory) Name(userID int64) (string, bool) {
	return d.names.Get(userID)
}

// AllowPrivate marks a user as allowed to use private chat.
func (d *Directory) AllowPrivate(userID int64) {
	d.private.Add(userID, struct{}{})
}

// PrivateAllowed checks if a user is allowed to use private chat.
func (d *Directory) PrivateAllowed(userID int64) bool {
	return d.private.Contains(userID)
}

// Mention renders a player id as an HTML user link. Unknown users are shown
// by id.
func (d *Directory) Mention(player string) string {
	id, err := strconv.ParseInt(player, 10, 64)
	if err != nil {
		return html.EscapeString(player)
	}
	name, ok := d.Name(id)
	if !ok {
		name = "User " + player
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "User " + strconv.FormatInt(u.ID, 10)
}

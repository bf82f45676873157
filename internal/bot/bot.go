// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-game-bot/internal/config"
	"chat-game-bot/internal/game"
	"chat-game-bot/internal/handler"
	"chat-game-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot       *tele.Bot
	cfg       *config.Config
	registry  *game.Registry
	directory *Directory

	// Handlers
	gameHandler  *handler.GameHandler
	statsHandler *handler.StatsHandler
	adminHandler *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config    *config.Config
	Engine    *game.Engine
	Registry  *game.Registry
	Directory *Directory
	Stats     *service.StatsService // optional, nil when the history is disabled
}

// NewTeleBot creates the telebot instance. It is created before the game
// engine because announcements are sent through it.
func NewTeleBot(cfg *config.BotConfig) (*tele.Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := cfg.PollerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New creates a new Bot instance with the given dependencies.
func New(teleBot *tele.Bot, deps *Dependencies) (*Bot, error) {
	if teleBot == nil {
		return nil, fmt.Errorf("telebot instance is required")
	}
	if deps == nil || deps.Config == nil || deps.Engine == nil || deps.Registry == nil || deps.Directory == nil {
		return nil, fmt.Errorf("config, engine, registry and directory are required")
	}

	b := &Bot{
		bot:       teleBot,
		cfg:       deps.Config,
		registry:  deps.Registry,
		directory: deps.Directory,
	}

	// Initialize handlers
	b.gameHandler = handler.NewGameHandler(deps.Engine)
	b.statsHandler = handler.NewStatsHandler(deps.Stats, deps.Registry, deps.Directory)
	b.adminHandler = handler.NewAdminHandler(deps.Engine)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())

	// Whitelist middleware - check if chat is allowed
	b.bot.Use(WhitelistMiddleware(b.cfg, b.directory))

	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and text handlers.
func (b *Bot) registerHandlers() {
	// Lifecycle commands in Telegram form, e.g. /join_ttt
	for alias, cmd := range handler.Aliases() {
		b.bot.Handle(alias, b.gameHandler.HandleCommand(cmd))
	}

	// Lifecycle commands written as text and game moves
	b.bot.Handle(tele.OnText, b.gameHandler.HandleText)

	// Lobby buttons
	b.bot.Handle(tele.OnCallback, b.gameHandler.HandleCallback)

	b.bot.Handle("/gamestats", b.statsHandler.HandleGameStats)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/resetgames", b.adminHandler.HandleResetGames)
}

// commandMenu lists the commands shown in the Telegram command menu.
func commandMenu(registry *game.Registry) []tele.Command {
	descriptions := map[handler.Action]string{
		handler.ActionStart:  "Start a new %s game",
		handler.ActionJoin:   "Join the waiting %s game",
		handler.ActionCancel: "Cancel your waiting %s game",
		handler.ActionLeave:  "Leave the %s game",
	}

	menu := make([]tele.Command, 0, len(descriptions)*2+1)
	for alias, cmd := range handler.Aliases() {
		rules, ok := registry.Get(cmd.Game)
		if !ok {
			continue
		}
		menu = append(menu, tele.Command{
			Text:        alias[1:],
			Description: fmt.Sprintf(descriptions[cmd.Action], rules.Name()),
		})
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Text < menu[j].Text })
	return append(menu, tele.Command{Text: "gamestats", Description: "Show the chat leaderboard"})
}

// Start starts the bot polling.
func (b *Bot) Start() {
	if err := b.bot.SetCommands(commandMenu(b.registry)); err != nil {
		log.Warn().Err(err).Msg("Failed to set command menu")
	}

	log.Info().Str("username", b.bot.Me.Username).Msg("Bot started")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// Package main is the entry point for the chat game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-game-bot/internal/bot"
	"chat-game-bot/internal/config"
	"chat-game-bot/internal/dictionary"
	"chat-game-bot/internal/game"
	"chat-game-bot/internal/game/tictactoe"
	"chat-game-bot/internal/game/wordchain"
	"chat-game-bot/internal/model"
	"chat-game-bot/internal/pkg/db"
	"chat-game-bot/internal/repository"
	"chat-game-bot/internal/service"
	"chat-game-bot/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session documents, one per game type
	tttStore, err := store.NewFileStore(cfg.Store.TicTacToePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open tic-tac-toe store")
	}
	wcgStore, err := store.NewFileStore(cfg.Store.WordChainPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open word chain store")
	}

	// Register games
	registry := game.NewRegistry()
	if err := registry.Register(tictactoe.New(&tictactoe.Config{
		TurnTimeout:  cfg.Games.TicTacToe.TurnTimeout,
		LobbyTimeout: cfg.Games.TicTacToe.LobbyTimeout,
	})); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tic-tac-toe")
	}

	words := dictionary.New(&dictionary.Config{
		BaseURL:   cfg.Dictionary.BaseURL,
		Timeout:   cfg.Dictionary.Timeout,
		CacheSize: cfg.Dictionary.CacheSize,
		CacheTTL:  cfg.Dictionary.CacheTTL,
	})
	if err := registry.Register(wordchain.New(words, &wordchain.Config{
		LobbyTimeout:  cfg.Games.WordChain.LobbyTimeout,
		TurnTimeout:   cfg.Games.WordChain.TurnTimeout,
		MinPlayers:    cfg.Games.WordChain.MinPlayers,
		MaxPlayers:    cfg.Games.WordChain.MaxPlayers,
		MinWordLength: cfg.Games.WordChain.MinWordLength,
		MaxWordLength: cfg.Games.WordChain.MaxWordLength,
		TargetWords:   cfg.Games.WordChain.TargetWords,
	})); err != nil {
		log.Fatal().Err(err).Msg("Failed to register word chain")
	}

	log.Info().
		Int("game_count", registry.Count()).
		Strs("games", registry.Types()).
		Msg("Games registered")

	// Optional game history
	var (
		recorder game.Recorder
		stats    *service.StatsService
		players  bot.PlayerStore
	)
	if cfg.Database.Enabled {
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := db.Migrate(ctx, dbPool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		results := repository.NewResultRepository(dbPool.Pool)
		recorder = results
		stats = service.NewStatsService(results, service.DefaultLeaderboardSize)
		players = repository.NewPlayerRepository(dbPool.Pool)
	} else {
		log.Info().Msg("Game history disabled")
	}

	teleBot, err := bot.NewTeleBot(&cfg.Bot)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	directory, err := bot.NewDirectory(bot.DefaultDirectorySize, players)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user directory")
	}

	engine, err := game.NewEngine(&game.Dependencies{
		Registry: registry,
		Stores: map[model.GameType]store.Store{
			model.GameTicTacToe: tttStore,
			model.GameWordChain: wcgStore,
		},
		Notifier: bot.NewNotifier(teleBot, directory),
		Recorder: recorder,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create game engine")
	}
	if err := engine.Resume(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to resume saved games")
	}

	telegramBot, err := bot.New(teleBot, &bot.Dependencies{
		Config:    cfg,
		Engine:    engine,
		Registry:  registry,
		Directory: directory,
		Stats:     stats,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	engine.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// configureLogger applies the configured level and output format.
func configureLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

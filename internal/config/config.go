// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Whitelist  WhitelistConfig  `mapstructure:"whitelist"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Games      GamesConfig      `mapstructure:"games"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token         string        `mapstructure:"token"`
	PollerTimeout time.Duration `mapstructure:"poller_timeout"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// StoreConfig holds the location of the session documents.
type StoreConfig struct {
	Dir           string `mapstructure:"dir"`
	TicTacToeFile string `mapstructure:"ttt_file"`
	WordChainFile string `mapstructure:"wcg_file"`
}

// TicTacToePath returns the path of the tic-tac-toe session document.
func (s *StoreConfig) TicTacToePath() string {
	return filepath.Join(s.Dir, s.TicTacToeFile)
}

// WordChainPath returns the path of the word chain session document.
func (s *StoreConfig) WordChainPath() string {
	return filepath.Join(s.Dir, s.WordChainFile)
}

// DatabaseConfig holds PostgreSQL connection configuration.
// The database only stores the game history and is optional.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// DictionaryConfig holds the word lookup configuration.
type DictionaryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	TicTacToe TicTacToeConfig `mapstructure:"ttt"`
	WordChain WordChainConfig `mapstructure:"wcg"`
}

// TicTacToeConfig holds tic-tac-toe configuration.
type TicTacToeConfig struct {
	TurnTimeout  time.Duration `mapstructure:"turn_timeout"`
	LobbyTimeout time.Duration `mapstructure:"lobby_timeout"`
}

// WordChainConfig holds word chain configuration.
type WordChainConfig struct {
	LobbyTimeout  time.Duration `mapstructure:"lobby_timeout"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	MinPlayers    int           `mapstructure:"min_players"`
	MaxPlayers    int           `mapstructure:"max_players"`
	MinWordLength int           `mapstructure:"min_word_length"`
	MaxWordLength int           `mapstructure:"max_word_length"`
	TargetWords   int           `mapstructure:"target_words"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_ENABLED, GAMES_WCG_TURN_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
// Keys must have a default to be overridable from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poller_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("store.dir", "./lib")
	v.SetDefault("store.ttt_file", "ttt-database.json")
	v.SetDefault("store.wcg_file", "wcg-database.json")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gamebot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "gamebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("dictionary.base_url", "https://api.dictionaryapi.dev/api/v2/entries/en/")
	v.SetDefault("dictionary.timeout", "5s")
	v.SetDefault("dictionary.cache_size", 4096)
	v.SetDefault("dictionary.cache_ttl", "24h")

	// Game defaults
	v.SetDefault("games.ttt.turn_timeout", "10m")
	v.SetDefault("games.ttt.lobby_timeout", "10m")
	v.SetDefault("games.wcg.lobby_timeout", "40s")
	v.SetDefault("games.wcg.turn_timeout", "40s")
	v.SetDefault("games.wcg.min_players", 2)
	v.SetDefault("games.wcg.max_players", 20)
	v.SetDefault("games.wcg.min_word_length", 3)
	v.SetDefault("games.wcg.max_word_length", 7)
	v.SetDefault("games.wcg.target_words", 10)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}

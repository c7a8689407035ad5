package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the transport layer.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// WebSocketConfig configures the websocket listener.
type WebSocketConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig configures the postgres connection pool.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	BackupDir       string        `mapstructure:"backup_dir"`
}

// GameConfig configures game and lobby rules.
type GameConfig struct {
	CardsPerPlayer int           `mapstructure:"cards_per_player"`
	MinPlayers     int           `mapstructure:"min_players"`
	MaxPlayers     int           `mapstructure:"max_players"`
	HistoryDepth   int           `mapstructure:"history_depth"`
	StartCountdown time.Duration `mapstructure:"start_countdown"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given yaml file, with KARATA_-prefixed
// environment variables overriding file values. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.websocket.address", ":8089")
	v.SetDefault("database.url", "postgres://localhost:5432/karata")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.backup_dir", "game_states")
	v.SetDefault("game.cards_per_player", 3)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.max_players", 10)
	v.SetDefault("game.history_depth", 32)
	v.SetDefault("game.start_countdown", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("KARATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("game.min_players must be at least 2, got %d", c.Game.MinPlayers)
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("game.max_players (%d) below game.min_players (%d)",
			c.Game.MaxPlayers, c.Game.MinPlayers)
	}
	if c.Game.CardsPerPlayer < 1 {
		return fmt.Errorf("game.cards_per_player must be positive, got %d", c.Game.CardsPerPlayer)
	}
	return nil
}

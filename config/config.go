package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress       string        `mapstructure:"http_address"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	MetricsAddress    string        `mapstructure:"metrics_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// GameConfig carries the room rules. Defaults: one minute per round, three
// guesses per player, three players to start.
type GameConfig struct {
	RoundDuration time.Duration `mapstructure:"round_duration"`
	AttemptBudget int           `mapstructure:"attempt_budget"`
	MinPlayers    int           `mapstructure:"min_players"`
	PointsPerWin  int           `mapstructure:"points_per_win"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":4000")
	viper.SetDefault("server.rpc_address", ":4001")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.heartbeat_interval", "30s")
	viper.SetDefault("game.round_duration", "60s")
	viper.SetDefault("game.attempt_budget", 3)
	viper.SetDefault("game.min_players", 3)
	viper.SetDefault("game.points_per_win", 10)
	viper.SetDefault("database.enabled", false)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		// The server runs fine on defaults without a config file.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}

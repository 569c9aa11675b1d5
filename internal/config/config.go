// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	API      APIConfig      `mapstructure:"api"`
	Referral ReferralConfig `mapstructure:"referral"`
	Games    GamesConfig    `mapstructure:"games"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
}

// TelegramConfig holds the MTProto application credentials and session
// file location.
type TelegramConfig struct {
	APIID      int    `mapstructure:"api_id"`
	APIHash    string `mapstructure:"api_hash"`
	SessionDir string `mapstructure:"session_dir"`
}

// APIConfig holds the Blum API endpoints and transport settings.
type APIConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	GameURL    string        `mapstructure:"game_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ReferralConfig holds the referral codes available for account creation.
type ReferralConfig struct {
	Codes []string `mapstructure:"codes"`
}

// GamesConfig controls mini-game play.
type GamesConfig struct {
	Play      bool `mapstructure:"play"`
	PointsMin int  `mapstructure:"points_min"`
	PointsMax int  `mapstructure:"points_max"`
}

// ProxyConfig holds the outbound proxy list settings. When enabled, proxies
// from the file are assigned to accounts round-robin.
type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
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

	// Environment variables use underscore separator and uppercase,
	// e.g. TELEGRAM_API_ID, REFERRAL_CODES, GAMES_PLAY.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is fine, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
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

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.session_dir", "sessions")

	v.SetDefault("api.gateway_url", "https://gateway.blum.codes/v1")
	v.SetDefault("api.game_url", "https://game-domain.blum.codes/api/v1")
	v.SetDefault("api.timeout", "120s")

	v.SetDefault("games.play", true)
	v.SetDefault("games.points_min", 240)
	v.SetDefault("games.points_max", 280)

	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.file", "proxies.txt")
}

func (c *Config) validate() error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return fmt.Errorf("telegram.api_id and telegram.api_hash are required")
	}
	if c.Games.PointsMin <= 0 || c.Games.PointsMax < c.Games.PointsMin {
		return fmt.Errorf("games.points_min/points_max must be positive and ordered")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Universe UniverseConfig `yaml:"universe"`
	Player   PlayerConfig   `yaml:"player"`
	Economy  EconomyConfig  `yaml:"economy"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type UniverseConfig struct {
	Sectors int `yaml:"sectors"`
	Ports   int `yaml:"ports"`
	// Seed of the universe generator. Zero picks a time-based seed, which is
	// then persisted alongside the universe.
	Seed          int64 `yaml:"seed"`
	MaxExtraWarps int   `yaml:"max_extra_warps"`
	// NearDistance bounds "local" warps; farther candidates are kept only
	// FarAcceptance of the time.
	NearDistance  int     `yaml:"near_distance"`
	FarAcceptance float64 `yaml:"far_acceptance"`
	PortCredits   int     `yaml:"port_credits"`
}

type PlayerConfig struct {
	StartingCredits   int `yaml:"starting_credits"`
	StartingTurns     int `yaml:"starting_turns"`
	CargoHolds        int `yaml:"cargo_holds"`
	StartingSectorMax int `yaml:"starting_sector_max"`
}

type EconomyConfig struct {
	// RegimeFlipThreshold is the stock level below which a port buys a
	// commodity and at or above which it sells it.
	RegimeFlipThreshold int           `yaml:"regime_flip_threshold"`
	RegenTarget         int           `yaml:"regen_target"`
	RegenRate           float64       `yaml:"regen_rate"`
	RegenInterval       time.Duration `yaml:"regen_interval"`
	Seed                int64         `yaml:"seed"`
}

type SessionConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
	ConnectionsShown int `yaml:"connections_shown"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// Default returns the stock game settings.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "meshwars.db"},
		Universe: UniverseConfig{
			Sectors:       100,
			Ports:         30,
			MaxExtraWarps: 2,
			NearDistance:  20,
			FarAcceptance: 0.3,
			PortCredits:   5000000,
		},
		Player: PlayerConfig{
			StartingCredits:   10000,
			StartingTurns:     1000,
			CargoHolds:        20,
			StartingSectorMax: 10,
		},
		Economy: EconomyConfig{
			RegimeFlipThreshold: 50000,
			RegenTarget:         25000,
			RegenRate:           0.1,
			RegenInterval:       4 * time.Hour,
		},
		Session: SessionConfig{
			MaxMessageLength: 200,
			ConnectionsShown: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and MESHWARS_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional; variables already in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MESHWARS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MESHWARS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MESHWARS_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("MESHWARS_UNIVERSE_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MESHWARS_UNIVERSE_SEED: %w", err)
		}
		c.Universe.Seed = seed
	}
	return nil
}

// Validate checks the settings the engine cannot run without.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Universe.Sectors < 2 {
		return fmt.Errorf("universe.sectors must be at least 2, got %d", c.Universe.Sectors)
	}
	if c.Universe.Ports < 1 || c.Universe.Ports > c.Universe.Sectors {
		return fmt.Errorf("universe.ports must be between 1 and %d, got %d", c.Universe.Sectors, c.Universe.Ports)
	}
	if c.Universe.MaxExtraWarps < 0 {
		return fmt.Errorf("universe.max_extra_warps must not be negative")
	}
	if c.Universe.NearDistance < 0 {
		return fmt.Errorf("universe.near_distance must not be negative")
	}
	if c.Universe.PortCredits < 0 {
		return fmt.Errorf("universe.port_credits must not be negative")
	}
	if c.Universe.FarAcceptance < 0 || c.Universe.FarAcceptance > 1 {
		return fmt.Errorf("universe.far_acceptance must be within [0,1]")
	}
	if c.Player.CargoHolds < 1 {
		return fmt.Errorf("player.cargo_holds must be positive")
	}
	if c.Player.StartingSectorMax < 1 || c.Player.StartingSectorMax > c.Universe.Sectors {
		return fmt.Errorf("player.starting_sector_max must be between 1 and %d", c.Universe.Sectors)
	}
	if c.Player.StartingCredits < 0 || c.Player.StartingTurns < 0 {
		return fmt.Errorf("player starting credits and turns must not be negative")
	}
	if c.Economy.RegimeFlipThreshold <= 0 {
		return fmt.Errorf("economy.regime_flip_threshold must be positive")
	}
	if c.Economy.RegenRate <= 0 || c.Economy.RegenRate > 1 {
		return fmt.Errorf("economy.regen_rate must be within (0,1]")
	}
	if c.Economy.RegenInterval <= 0 {
		return fmt.Errorf("economy.regen_interval must be positive")
	}
	if c.Session.MaxMessageLength < 40 {
		return fmt.Errorf("session.max_message_length must be at least 40")
	}
	if c.Session.ConnectionsShown < 0 {
		return fmt.Errorf("session.connections_shown must not be negative")
	}
	return nil
}

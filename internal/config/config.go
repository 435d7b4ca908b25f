// Package config loads relay settings from an optional YAML file, a .env
// file and RELAY_* environment variables, in that order.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/relay"
	"github.com/DoyleJ11/sudokucon-relay/internal/sudokupad"
)

const (
	DefaultAddr         = ":8080"
	DefaultUserKey      = "1"
	DefaultUserColor    = "#1e90ff"
	DefaultWriteTimeout = 3 * time.Second
)

type Config struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`

	// RoomID, when set, connects a relay at startup.
	RoomID string     `yaml:"room_id"`
	User   UserConfig `yaml:"user"`

	SendPointer  bool `yaml:"send_pointer"`
	ShowPointers bool `yaml:"show_pointers"`
	// SeedPuzzles uploads a blank puzzle for both channels before connecting.
	SeedPuzzles bool `yaml:"seed_puzzles"`

	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type UserConfig struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	// ID is generated when empty.
	ID string `yaml:"id"`
}

func Default() *Config {
	return &Config{
		Addr:         DefaultAddr,
		BaseURL:      sudokupad.DefaultBaseURL,
		User:         UserConfig{Key: DefaultUserKey, Color: DefaultUserColor},
		SendPointer:  true,
		ShowPointers: true,
		SeedPuzzles:  true,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Load reads path (if non-empty and present), then envFile, then the
// environment. Missing files are not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"RELAY_ADDR":       &c.Addr,
		"RELAY_BASE_URL":   &c.BaseURL,
		"RELAY_ROOM_ID":    &c.RoomID,
		"RELAY_USER_KEY":   &c.User.Key,
		"RELAY_USER_NAME":  &c.User.Name,
		"RELAY_USER_COLOR": &c.User.Color,
		"RELAY_USER_ID":    &c.User.ID,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"RELAY_SEND_POINTER":  &c.SendPointer,
		"RELAY_SHOW_POINTERS": &c.ShowPointers,
		"RELAY_SEED_PUZZLES":  &c.SeedPuzzles,
	}
	for env, dst := range bools {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = b
	}

	if v := os.Getenv("RELAY_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RELAY_WRITE_TIMEOUT: %w", err)
		}
		c.WriteTimeout = d
	}
	return nil
}

// Identity returns the session identity, generating a user id if none is
// configured. The generated id is kept for later calls.
func (c *Config) Identity() protocol.UserInfo {
	if c.User.ID == "" {
		c.User.ID = RandomUserID()
	}
	return protocol.UserInfo{
		Key:    c.User.Key,
		Name:   c.User.Name,
		Color:  c.User.Color,
		UserID: c.User.ID,
	}
}

func (c *Config) Settings() relay.Settings {
	return relay.Settings{SendPointer: c.SendPointer, ShowPointers: c.ShowPointers}
}

// RandomUserID returns a decimal id in [0, 1000000).
func RandomUserID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "0"
	}
	return n.String()
}

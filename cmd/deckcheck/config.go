package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the deckcheck plugin.
//
// The config surface is deliberately small: transport plumbing and logging
// only. Interaction timing and canvas geometry are fixed constants; a
// diagnostic surface that can be reconfigured is a diagnostic surface you
// can no longer trust.
type Config struct {
	// Deck host transport configuration
	Deck DeckConfig `yaml:"deck"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type DeckConfig struct {
	// HandshakeTimeoutMS bounds the websocket dial to the deck host.
	HandshakeTimeoutMS int `yaml:"handshake_timeout_ms"`

	// EventBuffer is the inbound event channel depth between the socket
	// reader and the daemon loop.
	EventBuffer int `yaml:"event_buffer"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults.
func DefaultConfig() Config {
	return Config{
		Deck: DeckConfig{
			HandshakeTimeoutMS: defaultHandshakeTimeoutMS,
			EventBuffer:        defaultEventBuffer,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Validate checks a Config for values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Deck.HandshakeTimeoutMS <= 0 {
		return errors.New("deck.handshake_timeout_ms must be > 0")
	}
	if c.Deck.EventBuffer <= 0 {
		return errors.New("deck.event_buffer must be > 0")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// The config file is the primary configuration surface; flags exist for
// ad-hoc overrides while debugging. Each override is only applied if the
// pointer is non-nil.
type FlagOverrides struct {
	HandshakeTimeoutMS *int
	EventBuffer        *int
	LogLevel           *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.HandshakeTimeoutMS != nil {
		cfg.Deck.HandshakeTimeoutMS = *o.HandshakeTimeoutMS
	}
	if o.EventBuffer != nil {
		cfg.Deck.EventBuffer = *o.EventBuffer
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

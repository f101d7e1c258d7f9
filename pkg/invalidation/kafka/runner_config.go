package kafka

import (
	"time"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
)

type InvalidationConfig struct {
	Enabled bool `yaml:"enabled"`

	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`

	SessionTimeout   time.Duration `yaml:"session_timeout"`
	Heartbeat        time.Duration `yaml:"heartbeat"`
	RebalanceTimeout time.Duration `yaml:"rebalance_timeout"`
	InitialOldest    bool          `yaml:"initial_oldest"`

	// DedupeSize bounds how many codes the version filter remembers.
	DedupeSize int `yaml:"dedupe_size"`
}

// ConfigFrom fills the consumer settings the service config does not carry
// with defaults.
func ConfigFrom(c config.InvalidationCfg) InvalidationConfig {
	return InvalidationConfig{
		Enabled:          c.Enabled,
		Brokers:          config.BrokerList(c.Brokers),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
		DedupeSize:       8192,
	}
}

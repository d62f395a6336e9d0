package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Metrics MetricsSection `koanf:"metrics"`
	Compat  CompatSection  `koanf:"compat"`
	Log     LogSection     `koanf:"log"`

	// Seed entries are added to the CONFIG GET/SET map at startup, on top of
	// the built-in save and appendonly values.
	Seed map[string]string `koanf:"seed"`
}

// ServerSection configures the protocol listener.
type ServerSection struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ReadBuffer is the size of one socket read in bytes.
	ReadBuffer int `koanf:"read_buffer"`

	// RateLimit is commands per second per client IP; 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	// ExpireInterval is the period of the active expiry sweep; 0 leaves
	// expiry to reads only.
	ExpireInterval time.Duration `koanf:"expire_interval"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Address returns host:port.
func (s ServerSection) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// CompatSection selects reply shapes where clients disagree.
type CompatSection struct {
	// NilReply is "array" (*-1) or "bulk" ($-1).
	NilReply string `koanf:"nil_reply"`
	// DelReply is "ok" or "count".
	DelReply string `koanf:"del_reply"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

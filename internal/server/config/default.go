package config

import "time"

// Default configuration values.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 6379
	DefaultIdleTimeout     = time.Hour
	DefaultWriteTimeout    = 30 * time.Second
	DefaultReadBuffer      = 1024
	DefaultExpireInterval  = 100 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second

	DefaultMetricsAddr = "127.0.0.1:9121"

	DefaultNilReply = "array"
	DefaultDelReply = "ok"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Host:            DefaultHost,
			Port:            DefaultPort,
			IdleTimeout:     DefaultIdleTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ReadBuffer:      DefaultReadBuffer,
			ExpireInterval:  DefaultExpireInterval,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Compat: CompatSection{
			NilReply: DefaultNilReply,
			DelReply: DefaultDelReply,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics, &cfg.Server); err != nil {
		return err
	}
	if err := verifyCompat(&cfg.Compat); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Host == "" {
		return errors.New("server.host is required")
	}
	// 0 binds an ephemeral port.
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Port)
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("server.idle_timeout must be positive")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("server.write_timeout must be positive")
	}
	if cfg.ReadBuffer < 16 {
		return fmt.Errorf("server.read_buffer must be at least 16, got %d", cfg.ReadBuffer)
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if cfg.ExpireInterval < 0 {
		return errors.New("server.expire_interval must not be negative")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection, srv *ServerSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr %q: %w", cfg.Addr, err)
	}
	if cfg.Addr == srv.Address() {
		return fmt.Errorf("metrics.addr %q conflicts with the protocol listener", cfg.Addr)
	}
	return nil
}

func verifyCompat(cfg *CompatSection) error {
	switch strings.ToLower(cfg.NilReply) {
	case "array", "bulk":
	default:
		return fmt.Errorf("compat.nil_reply must be array or bulk, got %q", cfg.NilReply)
	}
	switch strings.ToLower(cfg.DelReply) {
	case "ok", "count":
	default:
		return fmt.Errorf("compat.del_reply must be ok or count, got %q", cfg.DelReply)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Format)
	}
	return nil
}

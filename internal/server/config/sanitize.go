package config

import (
	"maps"
	"strings"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with credential seed values masked,
// for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	if cfg.Seed == nil {
		return &sanitized
	}

	sanitized.Seed = maps.Clone(cfg.Seed)
	for k, v := range sanitized.Seed {
		if v != "" && logger.IsSensitiveKey(k) {
			sanitized.Seed[k] = maskSecret(v)
		}
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

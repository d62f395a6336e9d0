package logger

import (
	"log/slog"
	"strings"
)

// Key fragments that mark a credential. Matching is case-insensitive.
var sensitiveKeyPatterns = []string{
	"requirepass",
	"masterauth",
	"password",
	"secret",
	"token",
}

// Commands whose arguments are all credentials.
var sensitiveCommands = []string{"auth", "hello"}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether a key name suggests a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// RedactArgs returns a copy of a command's arguments that is safe to log.
// The argument following a sensitive key (CONFIG SET requirepass x) is
// masked, and every argument of AUTH and HELLO is masked. Reply arrays
// such as a CONFIG GET result are handled the same way.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	if len(out) == 0 {
		return out
	}

	for _, cmd := range sensitiveCommands {
		if strings.EqualFold(out[0], cmd) {
			for i := 1; i < len(out); i++ {
				out[i] = redactedValue
			}
			return out
		}
	}

	for i := 0; i+1 < len(out); i++ {
		if IsSensitiveKey(out[i]) {
			out[i+1] = redactedValue
			i++
		}
	}
	return out
}

// Package logger configures structured logging for respkv.
//
// It builds a log/slog logger whose level lives in a shared slog.LevelVar, so
// the level can be changed at runtime (the config watcher does this when
// log.level changes). Attributes whose keys name a credential are redacted,
// and RedactArgs masks the same values inside logged command frames.
//
// Connection-scoped loggers travel in a context.Context; see WithConnID and L.
package logger

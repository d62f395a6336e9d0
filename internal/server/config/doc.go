// Package config defines the respkv-server configuration.
//
//   - spec.go: ServerConfig and its sections, with koanf tags
//   - default.go: default values
//   - verify.go: validation run before the server starts
//   - sanitize.go: a copy safe to log, with credentials masked
//
// Configuration is loaded by internal/infra/confloader from defaults, an
// optional YAML file, RESPKV_ environment variables and command-line flags.
package config

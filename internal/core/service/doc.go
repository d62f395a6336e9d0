// Package service holds the process-wide state shared by all connections.
//
// An Instance owns the server configuration map and the database registry.
// Each is guarded by its own mutex; the configuration mutex is a leaf and is
// never held while a database is locked.
//
// The package also provides RateLimiterRegistry, the per-client command
// rate limiter used by the protocol server.
package service

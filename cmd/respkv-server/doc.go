// Command respkv-server runs the respkv in-memory key-value server.
//
// Usage:
//
//	respkv-server [-p port] [-c respkv.yaml] [--log-level debug]
//
// Configuration is read from defaults, then the YAML file, then RESPKV_*
// environment variables, then flags. When a config file is given it is
// watched and a changed log.level is applied without a restart.
package main

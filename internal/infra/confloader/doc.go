// Package confloader loads respkv configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already present in the target struct
//  2. A YAML file
//  3. Environment variables (RESPKV_SERVER_PORT -> server.port)
//  4. Command-line flags, passed in as a map
//
// Watcher reports changes to the config file through fsnotify; the server
// uses it to reload log.level without a restart.
package confloader

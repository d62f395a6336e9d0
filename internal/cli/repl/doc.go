// Package repl is the interactive mode of respkv-cli.
//
// Each input line is split with redis-cli quoting rules, sent as one
// command and the reply printed with the configured formatter. "help"
// lists commands, "help <prefix>" filters them, and "exit" or "quit" leave
// the loop. Lines are kept in a history file between sessions.
package repl

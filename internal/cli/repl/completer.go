package repl

import (
	"slices"
	"strings"
)

// Commands lists the commands the server implements, for help and
// completion.
var Commands = []string{
	"APPEND", "COMMAND", "CONFIG", "DBSIZE", "DEBUG", "DECR", "DECRBY",
	"DEL", "ECHO", "EXISTS", "EXPIRE", "FLUSHALL", "FLUSHDB", "FUNCTION",
	"GET", "GETDEL", "GETEX", "GETRANGE", "GETSET", "INCR", "INCRBY",
	"INCRBYFLOAT", "INFO", "KEYS", "MGET", "MSET", "MSETNX", "PERSIST",
	"PEXPIRE", "PING", "PTTL", "QUIT", "SELECT", "SET", "SETEX", "SETNX",
	"SETRANGE", "STRLEN", "TTL", "TYPE",
}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over Commands.
func NewCompleter() *Completer {
	cmds := slices.Clone(Commands)
	slices.Sort(cmds)
	return &Completer{commands: cmds}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

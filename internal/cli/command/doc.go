// Package command defines the respkv-cli application with urfave/cli/v2.
//
// With arguments the CLI sends one command and prints the reply; without
// arguments it starts the interactive REPL.
package command

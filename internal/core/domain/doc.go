// Package domain defines the error taxonomy shared by the command layer.
//
// Command handlers return *CommandError values; the connection layer renders
// them as protocol error replies with Reply. Two CommandErrors compare equal
// under errors.Is when their kinds match, regardless of the command name.
package domain

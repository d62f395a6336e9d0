// Package connection is the respkv-cli side of the wire: a single TCP
// connection that sends command arrays and reads framed replies.
package connection

// Command respkv-cli is a command-line client for respkv-server.
//
//	respkv-cli -p 6379 set greeting hello
//	respkv-cli -o json mget a b c
//	respkv-cli            # interactive mode
package main

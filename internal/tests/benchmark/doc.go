// Package benchmark holds scale benchmarks for respkv: the database under
// growing key counts, the protocol codec, and pipelined commands over
// loopback TCP.
//
//	go test -bench . -benchmem ./internal/tests/benchmark/
package benchmark

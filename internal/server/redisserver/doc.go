// Package redisserver implements the RESP2 TCP server for respkv.
//
// Each accepted connection is served by one goroutine running a small state
// machine (Reading, Draining, Writing, Closed). Bytes are accumulated until
// resp.FrameNeed reports a complete frame; each frame is decoded, dispatched
// through the command table, and its reply is buffered. Replies for all
// frames drained from one read are flushed together before the next read.
// Malformed framing closes the connection without a reply.
//
// Supported commands:
//   - PING, ECHO, QUIT, SELECT, CONFIG GET|SET, COMMAND, FUNCTION, DEBUG, INFO
//   - FLUSHALL, FLUSHDB, DBSIZE
//   - SET, GET, GETDEL, GETEX, GETSET, SETNX, SETEX, MGET, MSET, MSETNX
//   - APPEND, STRLEN, GETRANGE, SETRANGE
//   - INCR, DECR, INCRBY, DECRBY, INCRBYFLOAT
//   - DEL, EXISTS, KEYS, TYPE, EXPIRE, PEXPIRE, PERSIST, TTL, PTTL
package redisserver

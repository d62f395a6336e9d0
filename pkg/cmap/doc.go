// Package cmap provides a sharded concurrent map with string keys.
//
// Keys are spread over a power-of-two number of shards by their xxhash
// digest; each shard has its own RWMutex.
//
// Usage:
//
//	clients := cmap.New[string, *Client]()
//	clients.Set(id, c)
//	c, ok := clients.Get(id)
//
// Range visits one shard at a time, so it never observes a consistent
// snapshot of the whole map.
package cmap

// Package memory provides the in-memory keyspace for respkv.
//
// A DB holds two maps: values keyed by the canonical encoding of a
// resp.Value, and absolute expiry times in unix milliseconds. Every key in
// the expiry map is also present in the value map. Expired keys are removed
// lazily, on first access at or after their deadline, and periodically by
// an Expirer.
//
// Thread Safety:
//
// Each DB has one mutex; every exported method runs under it. Multi-step
// commands use Update so that their reads and writes share one critical
// section. The Registry has its own mutex and never holds a DB mutex while
// holding it.
package memory

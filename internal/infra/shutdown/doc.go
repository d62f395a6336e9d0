// Package shutdown coordinates graceful process shutdown.
//
// A Handler collects named hooks and runs them in reverse registration order
// once SIGINT or SIGTERM arrives, Trigger is called, or the context passed to
// Wait is cancelled. Hooks share a single deadline.
package shutdown

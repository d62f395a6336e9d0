// Package httpserver serves the respkv observability endpoints:
//
//	GET /metrics   Prometheus exposition
//	GET /healthz   liveness
//	GET /readyz    readiness; 503 until the RESP listener is accepting
//	GET /keyspace  per-database key counts as JSON
//
// It is built on net/http; every route runs behind RequestID, Recover and
// AccessLog.
package httpserver

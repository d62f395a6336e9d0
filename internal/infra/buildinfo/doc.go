// Package buildinfo exposes the version stamped into respkv binaries.
//
// Version, Commit and BuildTime are set with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v0.3.0"
//
// When a binary is built without ldflags, Commit and BuildTime fall back to
// the VCS stamp recorded by the Go toolchain, if any.
package buildinfo

// Package resp implements the RESP2 wire protocol used by respkv.
//
// The package has three parts:
//
//   - value.go: the closed Value type covering the seven protocol variants
//   - frame.go: FrameLen, which measures the first complete frame in a buffer
//   - decode.go / encode.go: conversion between frames and Values
//
// FrameLen never allocates and never reads past the frame it reports, so a
// connection can accumulate bytes and peel off whole frames as they arrive:
//
//	n, err := resp.FrameLen(buf)
//	if errors.Is(err, resp.ErrNeedMore) {
//		// wait for more bytes
//	}
//	v, err := resp.Decode(buf[:n])
//	buf = buf[n:]
package resp

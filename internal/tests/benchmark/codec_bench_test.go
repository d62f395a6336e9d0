package benchmark

import (
	"bytes"
	"testing"

	"github.com/yndnr/respkv/pkg/resp"
)

var (
	setFrame  = resp.Append(nil, resp.Command("SET", "key:00000001", string(bytes.Repeat([]byte("x"), 64))))
	mgetReply = resp.Append(nil, resp.ArrayOf(
		resp.BulkString("one"), resp.NilBulk(), resp.BulkString("three"), resp.Integer(4),
	))
)

// BenchmarkFrameLen measures framing a typical SET request.
func BenchmarkFrameLen(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(setFrame)))
	for i := 0; i < b.N; i++ {
		if _, err := resp.FrameLen(setFrame); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFrameLen_Partial measures rescanning a frame that is still
// arriving, which the connection loop does after every short read.
func BenchmarkFrameLen_Partial(b *testing.B) {
	partial := setFrame[:len(setFrame)-3]
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := resp.FrameLen(partial); err != resp.ErrNeedMore {
			b.Fatalf("FrameLen() = %v, want ErrNeedMore", err)
		}
	}
}

// BenchmarkDecode measures decoding a SET request.
func BenchmarkDecode(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(setFrame)))
	for i := 0; i < b.N; i++ {
		if _, err := resp.Decode(setFrame); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAppend measures encoding an MGET-style reply into a reused buffer.
func BenchmarkAppend(b *testing.B) {
	v, err := resp.Decode(mgetReply)
	if err != nil {
		b.Fatal(err)
	}
	buf := make([]byte, 0, 256)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf = resp.Append(buf[:0], v)
	}
}

package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// KeyCounts defines the database sizes for full benchmark runs.
var KeyCounts = []int{10000, 100000, 500000, 1000000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

func key(i int) resp.Value {
	return resp.BulkString(fmt.Sprintf("key:%08d", i))
}

// prefillDB stores count keys with 64-byte values and returns the keys.
func prefillDB(db *memory.DB, count int) []resp.Value {
	value := resp.Bulk(make([]byte, 64))
	keys := make([]resp.Value, count)
	_ = db.Update(func(tx *memory.Txn) error {
		for i := range count {
			keys[i] = key(i)
			tx.Set(keys[i], value)
		}
		return nil
	})
	return keys
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs benchFn once per database size.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

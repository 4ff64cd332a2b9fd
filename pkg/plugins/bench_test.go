package plugins

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

func benchEntries(n int) []pluginproto.DecoratedEntry {
	entries := make([]pluginproto.DecoratedEntry, n)
	for i := range entries {
		entries[i] = testEntry(fmt.Sprintf("/bench/file-%04d", i))
	}
	return entries
}

// BenchmarkDecorateAll compares the sequential path with the worker pool
// for a listing of 1000 entries and three plugins.
func BenchmarkDecorateAll(b *testing.B) {
	entries := benchEntries(1000)
	for _, bc := range []struct {
		name      string
		threshold int
		workers   int
	}{
		{name: "sequential", threshold: len(entries) + 1, workers: 1},
		{name: "parallel", threshold: 1, workers: 8},
	} {
		b.Run(bc.name, func(b *testing.B) {
			d, r := setupDispatcher(b, DispatcherOptions{ParallelThreshold: bc.threshold, Workers: bc.workers},
				fieldPlugin("a", "a", "1"), fieldPlugin("b", "b", "2"), fieldPlugin("c", "c", "3"))
			defer r.Close()

			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if out := d.DecorateAll(ctx, entries); len(out) != len(entries) {
					b.Fatalf("got %d entries", len(out))
				}
			}
		})
	}
}

// BenchmarkFormatFields measures a repeated render with and without the
// field cache.
func BenchmarkFormatFields(b *testing.B) {
	for _, cached := range []bool{false, true} {
		b.Run(fmt.Sprintf("cache=%t", cached), func(b *testing.B) {
			var cache *FieldCache
			if cached {
				cache = NewFieldCache(DefaultFieldCacheSize, time.Minute, nil)
			}
			p := fieldPlugin("a", "a", "1")
			p.format = func(e pluginproto.DecoratedEntry, view string) (string, bool) {
				return e.Field("a")
			}
			d, r := setupDispatcher(b, DispatcherOptions{FieldCache: cache}, p)
			defer r.Close()

			ctx := context.Background()
			entry := d.Decorate(ctx, testEntry("/bench/file"))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.FormatFields(ctx, entry, "tree")
			}
		})
	}
}

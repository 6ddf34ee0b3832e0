//go:build jscan

package compare_test

import (
	"testing"

	"github.com/romshark/jscan"
)

// jscan: iterate tokens/values of a rendered manifest
func Benchmark_ScanManifest_jscan(b *testing.B) {
	data := cmpManifestJSON(b, cmpStructures)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := jscan.Begin()
		if err := it.Feed(data); err != nil {
			b.Fatal(err)
		}
		for it.Next() {
			_ = it.Value()
		}
		if err := it.Err(); err != nil {
			b.Fatal(err)
		}
	}
}

package kbench

import "runtime"

// DefaultFlushBytes is large enough to evict the last-level cache of most
// current CPUs (8-32MB L3).
const DefaultFlushBytes = 64 * 1024 * 1024

// cacheLine is the stride used to touch the flush buffer
const cacheLine = 64

var flushSink byte

// FlushCaches evicts CPU caches by writing size bytes, one cache line at a
// time, in two passes with different patterns, then runs a GC so the
// buffer's collection does not land inside the next measurement.
func FlushCaches(size int) {
	if size <= 0 {
		return
	}
	data := make([]byte, size)

	for i := 0; i < len(data); i += cacheLine {
		data[i] = byte(i % 256)
	}
	for i := 0; i < len(data); i += cacheLine {
		data[i] = byte((i * 7) % 256)
	}

	var acc byte
	for i := 0; i < len(data); i += cacheLine {
		acc ^= data[i]
	}
	flushSink = acc

	runtime.GC()
}

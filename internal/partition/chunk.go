// Package partition splits a file list into contiguous chunks, one per worker
// of the multicore strategy.
package partition

import "github.com/arkilian/tabload/pkg/types"

// ChunkSize returns ceil(n / p), the maximum number of files per worker.
// A parallelism below 1 is treated as 1; n <= 0 yields 0.
func ChunkSize(n, p int) int {
	if n <= 0 {
		return 0
	}
	if p < 1 {
		p = 1
	}
	return (n + p - 1) / p
}

// ChunkCount returns the number of chunks Chunks produces for n files and parallelism p.
// It is ceil(n / ChunkSize(n, p)) and never exceeds p.
func ChunkCount(n, p int) int {
	size := ChunkSize(n, p)
	if size == 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Chunks splits files into contiguous chunks of at most ChunkSize(len(files), p)
// items, preserving order. The chunks partition files exactly: their in-order
// concatenation is files and no item appears twice. An empty list yields no chunks.
//
// When len(files) is not a multiple of the chunk size the last chunk is
// shorter, and when the division leaves fewer full chunks than p (for example
// 9 files over 6 workers: size 2, 5 chunks) fewer than p workers are used.
func Chunks(files types.FileList, p int) []types.Chunk {
	size := ChunkSize(len(files), p)
	if size == 0 {
		return nil
	}

	chunks := make([]types.Chunk, 0, ChunkCount(len(files), p))
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		chunks = append(chunks, types.Chunk{
			Index: len(chunks),
			Items: files[start:end:end],
		})
	}
	return chunks
}

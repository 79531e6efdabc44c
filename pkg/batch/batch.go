// Package batch splits identifier lists into upstream-sized chunks and runs
// per-chunk work with bounded concurrency.
package batch

import (
	"strconv"
)

// MaxChunkSize is the largest number of identifiers PUG-REST accepts in a
// single comma-joined list request.
const MaxChunkSize = 100

// Divide splits items into ceil(n/MaxChunkSize) contiguous chunks of as even a
// size as possible: the first n%k chunks are one element longer. Order is
// preserved within and across chunks, and the chunks concatenate back to the
// input. An empty input yields nil.
func Divide(items []string) [][]string {
	n := len(items)
	if n == 0 {
		return nil
	}

	k := (n + MaxChunkSize - 1) / MaxChunkSize
	base := n / k
	extra := n % k

	chunks := make([][]string, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, items[start:start+size])
		start += size
	}

	return chunks
}

// Ints renders identifiers as decimal strings for URL assembly.
func Ints(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

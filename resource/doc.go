// Package resource bounds the memory, concurrency and IO bandwidth used by
// bulk slot transfers such as snapshots.
package resource

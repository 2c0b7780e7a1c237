// Package nearpy implements approximate nearest-neighbor search over
// high-dimensional real vectors using locality-sensitive hashing: an
// Engine combines a Hashing scheme, a pluggable Store, a Distance
// function, and a chain of Filters to index and query vector batches
// without ever performing an exact linear scan.
package nearpy

import "github.com/ole-ks/nearpy-go/batch"

// Batch is a dense, row-major matrix of N vectors of dimension D. It
// is an alias for batch.Batch so every package in this module shares
// one vector representation without importing the root package.
type Batch = batch.Batch

// NewBatch allocates a zeroed Batch of shape (n, d).
func NewBatch(n, d int) Batch { return batch.New(n, d) }

// BatchFromRows builds a Batch from a slice of equal-length rows.
func BatchFromRows(rows [][]float32) (Batch, error) { return batch.FromRows(rows) }

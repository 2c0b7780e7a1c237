// Package hash implements the bucket-key assignment schemes shared by
// the engine: random-hyperplane LSH, PCA-thresholded hashing, and
// spectral hashing. All three reduce a batch of vectors to a batch of
// unsigned integer bucket keys of at most 64 bits.
package hash

import "github.com/ole-ks/nearpy-go/batch"

// Hashing is the common contract implemented by every bucket-key
// assignment scheme. Hash is deterministic: it depends only on the
// parameters fixed at construction time (seed, trained projection,
// trained bounds) and the input vectors, never on prior calls.
type Hashing interface {
	Name() string
	Dimension() int
	NBits() int
	Hash(v batch.Batch) ([]uint64, error)
}

// fold converts, for each row, a slice of projection values into an
// unsigned bucket key using the fixed weights 2^0, 2^1, ..., 2^(len-1),
// with bit i set iff projection i is strictly positive.
func fold(projections [][]float64) []uint64 {
	keys := make([]uint64, len(projections))
	for i, row := range projections {
		var k uint64
		for j, p := range row {
			if p > 0 {
				k |= uint64(1) << uint(j)
			}
		}
		keys[i] = k
	}
	return keys
}

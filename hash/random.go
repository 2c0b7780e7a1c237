package hash

import (
	"fmt"
	"math/rand"

	"github.com/ole-ks/nearpy-go/batch"
)

// RandomHyperplane implements random-hyperplane locality-sensitive
// hashing: it projects each vector onto nbits random Gaussian normals
// and folds the sign pattern into a bucket key.
type RandomHyperplane struct {
	name      string
	dimension int
	nbits     int
	normals   [][]float64 // dimension x nbits
}

// NewRandomHyperplane draws an nbits-column Gaussian matrix from a
// seeded PRNG. The same seed always produces the same normals and
// therefore the same hash for a given vector, regardless of process.
func NewRandomHyperplane(name string, dimension, nbits int, seed int64) (*RandomHyperplane, error) {
	if nbits < 1 || nbits > 64 {
		return nil, fmt.Errorf("hash: %s: nbits must be in [1,64], got %d", name, nbits)
	}
	if dimension < 1 {
		return nil, fmt.Errorf("hash: %s: dimension must be positive, got %d", name, dimension)
	}
	rng := rand.New(rand.NewSource(seed))
	normals := make([][]float64, dimension)
	for d := 0; d < dimension; d++ {
		normals[d] = make([]float64, nbits)
		for j := 0; j < nbits; j++ {
			normals[d][j] = rng.NormFloat64()
		}
	}
	return &RandomHyperplane{name: name, dimension: dimension, nbits: nbits, normals: normals}, nil
}

func (h *RandomHyperplane) Name() string   { return h.name }
func (h *RandomHyperplane) Dimension() int { return h.dimension }
func (h *RandomHyperplane) NBits() int     { return h.nbits }

func (h *RandomHyperplane) Hash(v batch.Batch) ([]uint64, error) {
	if v.D != h.dimension {
		return nil, fmt.Errorf("hash: %s: dimension mismatch: expected %d, got %d", h.name, h.dimension, v.D)
	}
	projections := make([][]float64, v.N)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		proj := make([]float64, h.nbits)
		for j := 0; j < h.nbits; j++ {
			var sum float64
			for d := 0; d < h.dimension; d++ {
				sum += float64(row[d]) * h.normals[d][j]
			}
			proj[j] = sum
		}
		projections[i] = proj
	}
	return fold(projections), nil
}

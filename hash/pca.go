package hash

import (
	"fmt"

	"github.com/ole-ks/nearpy-go/batch"
	"github.com/ole-ks/nearpy-go/pca"
)

// PCAHash projects a vector onto the first npca = min(nbits, dimension)
// principal components and folds the sign pattern into a bucket key.
type PCAHash struct {
	name      string
	dimension int
	nbits     int
	npca      int
	params    pca.Params
}

// NewPCAHash builds a PCAHash from a trained Params triple. Training
// itself (accumulating and eigendecomposing a covariance matrix) is
// the job of the pca package; this constructor only consumes the
// result.
func NewPCAHash(name string, dimension, nbits int, params pca.Params) (*PCAHash, error) {
	if nbits < 1 || nbits > 64 {
		return nil, fmt.Errorf("hash: %s: nbits must be in [1,64], got %d", name, nbits)
	}
	if len(params.Mean) != dimension || len(params.Eigenvectors) != dimension {
		return nil, fmt.Errorf("hash: %s: pca params dimension mismatch: expected %d", name, dimension)
	}
	npca := nbits
	if dimension < npca {
		npca = dimension
	}
	return &PCAHash{name: name, dimension: dimension, nbits: nbits, npca: npca, params: params}, nil
}

func (h *PCAHash) Name() string   { return h.name }
func (h *PCAHash) Dimension() int { return h.dimension }
func (h *PCAHash) NBits() int     { return h.nbits }

// NPCA returns min(nbits, dimension), the number of principal
// components actually used. Spectral hashing reuses this value.
func (h *PCAHash) NPCA() int { return h.npca }

// Project returns the first npca principal-component projections of
// v with the mean subtracted.
func (h *PCAHash) Project(v batch.Batch) ([][]float64, error) {
	if v.D != h.dimension {
		return nil, fmt.Errorf("hash: %s: dimension mismatch: expected %d, got %d", h.name, h.dimension, v.D)
	}
	out := make([][]float64, v.N)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		proj := make([]float64, h.npca)
		for j := 0; j < h.npca; j++ {
			var sum float64
			for d := 0; d < h.dimension; d++ {
				sum += (float64(row[d]) - float64(h.params.Mean[d])) * h.params.Eigenvectors[d][j]
			}
			proj[j] = sum
		}
		out[i] = proj
	}
	return out, nil
}

// ProjectRaw is Project without mean subtraction, used by spectral
// hashing, which follows Weiss et al. in projecting onto the trained
// eigenbasis without recentering.
func (h *PCAHash) ProjectRaw(v batch.Batch) ([][]float64, error) {
	if v.D != h.dimension {
		return nil, fmt.Errorf("hash: %s: dimension mismatch: expected %d, got %d", h.name, h.dimension, v.D)
	}
	out := make([][]float64, v.N)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		proj := make([]float64, h.npca)
		for j := 0; j < h.npca; j++ {
			var sum float64
			for d := 0; d < h.dimension; d++ {
				sum += float64(row[d]) * h.params.Eigenvectors[d][j]
			}
			proj[j] = sum
		}
		out[i] = proj
	}
	return out, nil
}

func (h *PCAHash) Hash(v batch.Batch) ([]uint64, error) {
	proj, err := h.Project(v)
	if err != nil {
		return nil, err
	}
	return fold(proj), nil
}

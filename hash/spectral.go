package hash

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"

	"github.com/ole-ks/nearpy-go/batch"
	"github.com/ole-ks/nearpy-go/pca"
)

// SpectralHash is built from a PCA projection by composition, not
// inheritance: it keeps a *PCAHash projector plus the bounding box and
// sinusoidal mode table derived from training data, following
// Weiss, Torralba & Fergus, "Spectral Hashing" (NIPS 2008).
type SpectralHash struct {
	name   string
	pca    *PCAHash
	lo     []float64
	hi     []float64
	omega0 []float64
	modes  [][]float64 // nbits x npca, the kept modes in bit order
}

// NewSpectralHash derives the mode table from params (the trained
// eigenbasis) and bounds (the training data's bounding box in that
// basis, see TrainBounds).
func NewSpectralHash(name string, dimension, nbits int, params pca.Params, bounds Bounds) (*SpectralHash, error) {
	proj, err := NewPCAHash(name, dimension, nbits, params)
	if err != nil {
		return nil, err
	}
	npca := proj.NPCA()
	if len(bounds.Lo) != npca || len(bounds.Hi) != npca {
		return nil, fmt.Errorf("hash: %s: bounds dimension mismatch: expected %d", name, npca)
	}

	lo := make([]float64, npca)
	hi := make([]float64, npca)
	r := make([]float64, npca)
	maxR := 0.0
	for i := 0; i < npca; i++ {
		lo[i] = float64(bounds.Lo[i])
		hi[i] = float64(bounds.Hi[i])
		r[i] = hi[i] - lo[i]
		if r[i] > maxR {
			maxR = r[i]
		}
	}
	if maxR <= 0 {
		return nil, fmt.Errorf("hash: %s: degenerate training bounds (zero range)", name)
	}

	maxMode := make([]int, npca)
	sumMaxMode := 0
	for i := 0; i < npca; i++ {
		mm := int(math.Ceil(float64(nbits+1) * r[i] / maxR))
		if mm < 1 {
			mm = 1
		}
		maxMode[i] = mm
		sumMaxMode += mm
	}
	nModes := sumMaxMode - npca + 1
	if nModes < nbits+1 {
		return nil, fmt.Errorf("hash: %s: training bounds too narrow to derive %d modes (got %d)", name, nbits, nModes-1)
	}

	modes := make([][]float64, nModes)
	for i := range modes {
		modes[i] = make([]float64, npca)
		for j := range modes[i] {
			modes[i][j] = 1
		}
	}
	m := 0
	for i := 0; i < npca; i++ {
		for t := 0; t < maxMode[i]-1; t++ {
			modes[m+1+t][i] = float64(2 + t)
		}
		m += maxMode[i] - 1
	}
	for i := range modes {
		for j := range modes[i] {
			modes[i][j]--
		}
	}

	omega0 := make([]float64, npca)
	for i := range omega0 {
		omega0[i] = math.Pi / r[i]
	}

	eigVal := make([]float64, nModes)
	for k, mode := range modes {
		var s float64
		for j, mj := range mode {
			w := mj * omega0[j]
			s += w * w
		}
		eigVal[k] = -s
	}
	order := make([]int, nModes)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) bool { return eigVal[a] > eigVal[b] })

	// order[0] is the all-zero constant mode (eigVal == 0, the
	// maximum); drop it and keep the next nbits modes.
	kept := make([][]float64, nbits)
	for i := 0; i < nbits; i++ {
		kept[i] = modes[order[i+1]]
	}

	return &SpectralHash{name: name, pca: proj, lo: lo, hi: hi, omega0: omega0, modes: kept}, nil
}

func (h *SpectralHash) Name() string   { return h.name }
func (h *SpectralHash) Dimension() int { return h.pca.Dimension() }
func (h *SpectralHash) NBits() int     { return h.pca.NBits() }

func (h *SpectralHash) Hash(v batch.Batch) ([]uint64, error) {
	proj, err := h.pca.ProjectRaw(v)
	if err != nil {
		return nil, err
	}
	const halfPi = math.Pi / 2
	out := make([][]float64, len(proj))
	for i, p := range proj {
		row := make([]float64, len(h.modes))
		for k, mode := range h.modes {
			f := 1.0
			for j, mj := range mode {
				f *= math.Sin(h.omega0[j]*mj*(p[j]-h.lo[j]) + halfPi)
			}
			row[k] = f
		}
		out[i] = row
	}
	return fold(out), nil
}

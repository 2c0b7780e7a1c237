package pca

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"

	"github.com/ole-ks/nearpy-go/batch"
)

// Accumulator incrementally folds training batches into the running
// mean and co-moment matrix of a streaming PCA computation, the
// batch-update analogue of Welford's online algorithm, so the full
// training set never needs to be held in memory at once.
type Accumulator struct {
	dim      int
	total    int
	mean     []float64
	comoment [][]float64
}

// NewAccumulator starts a fresh accumulation for vectors of the given
// dimension.
func NewAccumulator(dim int) *Accumulator {
	comoment := make([][]float64, dim)
	for i := range comoment {
		comoment[i] = make([]float64, dim)
	}
	return &Accumulator{dim: dim, mean: make([]float64, dim), comoment: comoment}
}

// Add folds one training batch into the running statistics.
func (a *Accumulator) Add(v batch.Batch) error {
	if v.D != a.dim {
		return fmt.Errorf("pca: dimension mismatch: accumulator is %d, batch is %d", a.dim, v.D)
	}
	if v.N == 0 {
		return nil
	}
	lastMean := append([]float64(nil), a.mean...)
	a.total += v.N

	sum := make([]float64, a.dim)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		for d := 0; d < a.dim; d++ {
			sum[d] += float64(row[d]) - a.mean[d]
		}
	}
	for d := 0; d < a.dim; d++ {
		a.mean[d] += sum[d] / float64(a.total)
	}

	diffNew := make([]float64, a.dim)
	diffOld := make([]float64, a.dim)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		for d := 0; d < a.dim; d++ {
			diffNew[d] = float64(row[d]) - a.mean[d]
			diffOld[d] = float64(row[d]) - lastMean[d]
		}
		for x := 0; x < a.dim; x++ {
			cx := a.comoment[x]
			dx := diffNew[x]
			for y := 0; y < a.dim; y++ {
				cx[y] += dx * diffOld[y]
			}
		}
	}
	return nil
}

// Finalize runs a symmetric eigendecomposition of the accumulated
// covariance matrix and returns the (mean, eigenvalues, eigenvectors)
// triple, with eigenvalues descending and eigenvectors as aligned
// columns. This is the concrete implementation of the online-PCA
// contract consumed by PCAHash/SpectralHash.
func (a *Accumulator) Finalize() (Params, error) {
	if a.total < 2 {
		return Params{}, errors.New("pca: need at least 2 training vectors")
	}
	n := a.dim
	denom := float64(a.total - 1)
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = (a.comoment[i][j] + a.comoment[j][i]) / (2 * denom)
		}
	}
	sym := mat.NewSymDense(n, data)
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return Params{}, errors.New("pca: eigendecomposition did not converge")
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(i, j int) bool { return values[i] > values[j] })

	eigenvalues := make([]float64, n)
	eigenvectors := make([][]float64, n)
	for d := 0; d < n; d++ {
		eigenvectors[d] = make([]float64, n)
	}
	for j, idx := range order {
		eigenvalues[j] = values[idx]
		for d := 0; d < n; d++ {
			eigenvectors[d][j] = vecs.At(d, idx)
		}
	}

	mean := make([]float32, n)
	for i, m := range a.mean {
		mean[i] = float32(m)
	}
	return Params{Mean: mean, Eigenvalues: eigenvalues, Eigenvectors: eigenvectors}, nil
}

// TrainStream yields successive training batches; it reports ok=false
// once exhausted.
type TrainStream func() (b batch.Batch, ok bool, err error)

// Train drains a training stream into a fresh Accumulator and
// finalizes it in one call.
func Train(dim int, stream TrainStream) (Params, error) {
	acc := NewAccumulator(dim)
	for {
		b, ok, err := stream()
		if err != nil {
			return Params{}, err
		}
		if !ok {
			break
		}
		if err := acc.Add(b); err != nil {
			return Params{}, err
		}
	}
	return acc.Finalize()
}

package hash

import (
	"math"
	"sync"

	"github.com/ole-ks/nearpy-go/batch"
	"github.com/ole-ks/nearpy-go/internal/atomicext"
)

// Bounds holds the axis-aligned bounding box of training data
// projected into PCA space. TrainBounds subtracts spectralEps from Lo
// and adds it to Hi in float32 arithmetic, so the pad survives only
// where it exceeds half the float32 spacing at that bound; at most
// magnitudes (e.g. any |bound| >= 1) it rounds away and Lo/Hi equal
// the training extremes exactly. Spectral hashing derives its mode
// table from Bounds.
type Bounds struct {
	Lo, Hi []float32
}

const spectralEps = 1e-8

// TrainStream yields successive training batches; it reports ok=false
// once exhausted, mirroring the pull-based shape the engine itself
// uses for queries.
type TrainStream func() (b batch.Batch, ok bool, err error)

// TrainBounds computes the bounding box, in proj's PCA space, of every
// vector produced by stream. Batches are distributed across workers
// goroutines; each worker folds its batch's min/max directly into the
// shared bound slices with a lock-free compare-and-swap loop, so the
// workers need no coordination beyond that.
func TrainBounds(proj *PCAHash, stream TrainStream, workers int) (Bounds, error) {
	if workers < 1 {
		workers = 1
	}
	npca := proj.NPCA()
	lo := make([]float64, npca)
	hi := make([]float64, npca)
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}

	batches := make(chan batch.Batch, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				rows, err := proj.ProjectRaw(b)
				if err != nil {
					recordErr(err)
					continue
				}
				for _, row := range rows {
					for d, p := range row {
						atomicext.MinFloat64(&lo[d], p)
						atomicext.MaxFloat64(&hi[d], p)
					}
				}
			}
		}()
	}

	for {
		b, ok, err := stream()
		if err != nil {
			recordErr(err)
			break
		}
		if !ok {
			break
		}
		batches <- b
	}
	close(batches)
	wg.Wait()

	if firstErr != nil {
		return Bounds{}, firstErr
	}
	loF := make([]float32, npca)
	hiF := make([]float32, npca)
	for i := 0; i < npca; i++ {
		loF[i] = float32(lo[i]) - spectralEps
		hiF[i] = float32(hi[i]) + spectralEps
	}
	return Bounds{Lo: loF, Hi: hiF}, nil
}

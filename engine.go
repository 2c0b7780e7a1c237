package nearpy

import (
	"fmt"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/distance"
	"github.com/ole-ks/nearpy-go/filter"
	"github.com/ole-ks/nearpy-go/hash"
	"github.com/ole-ks/nearpy-go/store"
)

// Engine orchestrates indexing and querying: StoreBatch hashes and
// appends vectors to Storage under the "patch" attribute (plus any
// caller-supplied sidecar attributes); NeighborsBatch hashes query
// vectors, fetches their buckets (expanding via bit-flip neighbors
// when a bucket is too small), scores candidates with Distance, and
// narrows them with Filters.
type Engine struct {
	Hash     hash.Hashing
	Distance distance.Distance // nil skips scoring; candidates are returned unfiltered
	Filters  []filter.Filter
	Storage  store.Store

	// FlipCount controls how many bits the underfill refill flips
	// together when a bucket is smaller than the first filter's
	// target count. The default, 1, reproduces the original
	// single-bit-flip batch of nbits neighbor keys.
	FlipCount int
}

// NewEngine builds an Engine with FlipCount defaulted to 1.
func NewEngine(h hash.Hashing, dist distance.Distance, filters []filter.Filter, st store.Store) *Engine {
	return &Engine{Hash: h, Distance: dist, Filters: filters, Storage: st, FlipCount: 1}
}

func (e *Engine) flipCount() int {
	if e.FlipCount <= 0 {
		return 1
	}
	return e.FlipCount
}

// ExtraAttribute pairs a sidecar attribute descriptor with the batch
// of values to store under it.
type ExtraAttribute struct {
	Attr   attribute.Attribute
	Values any
}

// StoreBatch hashes v and appends it to storage under the canonical
// patch attribute, along with any extra attributes supplied; extra is
// keyed by attribute name (never by Attribute identity — the engine
// always refers to attributes by name) and every value in extra must
// have exactly v.N elements. It returns the number of vectors written.
func (e *Engine) StoreBatch(v Batch, extra map[string]ExtraAttribute) (int, error) {
	if v.D != e.Hash.Dimension() {
		return 0, fmt.Errorf("nearpy: dimension mismatch: hashing expects %d, got %d", e.Hash.Dimension(), v.D)
	}
	keys, err := e.Hash.Hash(v)
	if err != nil {
		return 0, err
	}

	patch := attribute.NewPatch(v.D)
	encoded := make(map[string][][]byte, len(extra)+1)
	chunks, err := patch.Encode(v)
	if err != nil {
		return 0, fmt.Errorf("nearpy: encoding patch: %w", err)
	}
	encoded[patch.Name()] = chunks

	for name, ex := range extra {
		if ex.Attr.Name() != name {
			return 0, fmt.Errorf("nearpy: attribute %q registered under mismatched key %q", ex.Attr.Name(), name)
		}
		if ex.Attr.Count(ex.Values) != v.N {
			return 0, fmt.Errorf("nearpy: attribute %q has %d values, want %d", name, ex.Attr.Count(ex.Values), v.N)
		}
		chunks, err := ex.Attr.Encode(ex.Values)
		if err != nil {
			return 0, fmt.Errorf("nearpy: encoding attribute %q: %w", name, err)
		}
		encoded[name] = chunks
	}

	return e.Storage.Store(keys, encoded)
}

// CandidateCountBatch reports, per query vector, the bucket occupancy
// before any bit-flip expansion or filtering, letting callers tune
// nbits against expected bucket occupancy.
func (e *Engine) CandidateCountBatch(v Batch) ([]int, error) {
	if v.D != e.Hash.Dimension() {
		return nil, fmt.Errorf("nearpy: dimension mismatch: hashing expects %d, got %d", e.Hash.Dimension(), v.D)
	}
	keys, err := e.Hash.Hash(v)
	if err != nil {
		return nil, err
	}
	return e.Storage.Count(keys)
}

// CandidateCount is CandidateCountBatch for a single query vector.
func (e *Engine) CandidateCount(v []float32) (int, error) {
	b, err := BatchFromRows([][]float32{v})
	if err != nil {
		return 0, err
	}
	counts, err := e.CandidateCountBatch(b)
	if err != nil {
		return 0, err
	}
	return counts[0], nil
}

// NumBuckets returns the number of distinct bucket keys with any
// patch data stored.
func (e *Engine) NumBuckets() (int, error) {
	keys, err := e.Storage.BucketKeys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// NumPatches returns the total number of patch elements stored across
// every bucket.
func (e *Engine) NumPatches() (int, error) {
	keys, err := e.Storage.BucketKeys()
	if err != nil {
		return 0, err
	}
	counts, err := e.Storage.Count(keys)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum, nil
}

// BucketSizes returns every bucket key alongside its patch occupancy.
func (e *Engine) BucketSizes() ([]uint64, []int, error) {
	keys, err := e.Storage.BucketKeys()
	if err != nil {
		return nil, nil, err
	}
	counts, err := e.Storage.Count(keys)
	if err != nil {
		return nil, nil, err
	}
	return keys, counts, nil
}

// Clear wipes every attribute's data for every bucket, a wholesale
// index reset.
func (e *Engine) Clear() (int, error) {
	attrKeys, err := e.Storage.BucketKeysAllAttributes()
	if err != nil {
		return 0, err
	}
	return e.Storage.Remove(attrKeys)
}

// Result is one query's surviving candidates after distance scoring
// and filtering: Dist holds the kept candidates' scores (nil if
// Engine.Distance is nil), and Attrs holds each requested attribute's
// decoded values for the same kept indices, keyed by attribute name.
type Result struct {
	QueryIndex int
	Dist       []float64
	Attrs      map[string]any
}

// NeighborsBatch hashes v's rows and returns a pull-based iterator
// over their neighbor results. Buckets are only fetched from storage
// the first time a query's bucket is visited: deduplication across
// the batch guarantees at most one fetch per distinct bucket key, and
// a consumer that stops early never triggers fetches for buckets it
// never reached. attrs names any sidecar attributes to fetch and
// filter alongside the patch attribute; the patch attribute itself is
// always included implicitly when Distance is configured.
func (e *Engine) NeighborsBatch(v Batch, attrs ...attribute.Attribute) (*ResultIter, error) {
	if v.D != e.Hash.Dimension() {
		return nil, fmt.Errorf("nearpy: dimension mismatch: hashing expects %d, got %d", e.Hash.Dimension(), v.D)
	}
	full := append([]attribute.Attribute(nil), attrs...)
	if e.Distance != nil {
		has := false
		for _, a := range full {
			if a.Name() == e.Distance.AttributeName() {
				has = true
				break
			}
		}
		if !has {
			full = append(full, attribute.NewPatch(v.D))
		}
	}

	keys, err := e.Hash.Hash(v)
	if err != nil {
		return nil, err
	}
	uniqueKeys, groups := groupByKey(keys)

	return &ResultIter{
		e:           e,
		attributes:  full,
		queryValues: v,
		uniqueKeys:  uniqueKeys,
		groups:      groups,
	}, nil
}

func groupByKey(keys []uint64) (unique []uint64, groups [][]int) {
	index := make(map[uint64]int)
	for i, k := range keys {
		pos, ok := index[k]
		if !ok {
			pos = len(unique)
			index[k] = pos
			unique = append(unique, k)
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], i)
	}
	return unique, groups
}

// ResultIter is a pull-based sequence of per-query Results, one bucket
// at a time. Call Next repeatedly until it reports ok == false.
type ResultIter struct {
	e           *Engine
	attributes  []attribute.Attribute
	queryValues Batch
	uniqueKeys  []uint64
	groups      [][]int

	keyCursor     int
	pending       []Result
	pendingCursor int
	err           error
}

// Next advances the iterator, returning the next Result in query
// order within each bucket. It returns ok == false once every query's
// bucket has been visited, or once a non-nil error is returned.
func (it *ResultIter) Next() (Result, bool, error) {
	if it.err != nil {
		return Result{}, false, it.err
	}
	for {
		if it.pendingCursor < len(it.pending) {
			r := it.pending[it.pendingCursor]
			it.pendingCursor++
			return r, true, nil
		}
		if it.keyCursor >= len(it.uniqueKeys) {
			return Result{}, false, nil
		}
		it.pending = it.pending[:0]
		if err := it.fetchBucket(); err != nil {
			it.err = err
			return Result{}, false, err
		}
		it.keyCursor++
		it.pendingCursor = 0
	}
}

func (it *ResultIter) targetK() int {
	if len(it.e.Filters) == 0 {
		return 0
	}
	nf, ok := it.e.Filters[0].(filter.NearestFilter)
	if !ok {
		return 0
	}
	return nf.K
}

func (it *ResultIter) fetchBucket() error {
	i := it.keyCursor
	u := it.uniqueKeys[i]

	values := make(map[string]any, len(it.attributes))
	for _, a := range it.attributes {
		got, err := it.e.Storage.Retrieve([]uint64{u}, a)
		if err != nil {
			return err
		}
		values[a.Name()] = got[0]
	}

	if needed := it.targetK(); needed > 0 {
		patch, ok := values[attribute.PatchName]
		if ok && patch.(Batch).N < needed {
			neighborKeys := flipKeys(u, it.e.Hash.NBits(), it.e.flipCount())
			for _, a := range it.attributes {
				extra, err := it.e.Storage.Retrieve(neighborKeys, a)
				if err != nil {
					return err
				}
				merged := values[a.Name()]
				for _, ev := range extra {
					var err error
					merged, err = a.Concat(merged, ev)
					if err != nil {
						return err
					}
				}
				values[a.Name()] = merged
			}
		}
	}

	var patchBatch Batch
	if pb, ok := values[attribute.PatchName]; ok {
		patchBatch = pb.(Batch)
	}

	for _, qi := range it.groups[i] {
		res := Result{QueryIndex: qi, Attrs: make(map[string]any, len(it.attributes))}

		var keepIdx []int
		if it.e.Distance != nil {
			query := it.queryValues.Row(qi)
			scores, err := it.e.Distance.Compute(query, patchBatch)
			if err != nil {
				return err
			}
			keepIdx = applyFilters(it.e.Filters, scores)
			kept := make([]float64, len(keepIdx))
			for j, ix := range keepIdx {
				kept[j] = scores[ix]
			}
			res.Dist = kept
		} else {
			keepIdx = make([]int, patchBatch.N)
			for j := range keepIdx {
				keepIdx[j] = j
			}
		}

		for _, a := range it.attributes {
			sliced, err := a.Slice(values[a.Name()], keepIdx)
			if err != nil {
				return err
			}
			res.Attrs[a.Name()] = sliced
		}
		it.pending = append(it.pending, res)
	}
	return nil
}

func applyFilters(filters []filter.Filter, dist []float64) []int {
	idx := make([]int, len(dist))
	for i := range idx {
		idx[i] = i
	}
	scores := append([]float64(nil), dist...)
	for _, f := range filters {
		keep := f.Apply(scores)
		newIdx := make([]int, len(keep))
		newScores := make([]float64, len(keep))
		for j, k := range keep {
			newIdx[j] = idx[k]
			newScores[j] = scores[k]
		}
		idx, scores = newIdx, newScores
	}
	return idx
}

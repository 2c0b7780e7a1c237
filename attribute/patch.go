package attribute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ole-ks/nearpy-go/batch"
)

// Patch is the canonical fixed-shape vector attribute: every element
// is a row of dim float32 values, encoded as dim*4 little-endian
// bytes. The file storage backend (store.File) writes a patch bucket
// file as exactly a contiguous run of such chunks.
type Patch struct {
	dim int
}

// NewPatch returns the Patch attribute for vectors of the given
// dimension.
func NewPatch(dim int) *Patch { return &Patch{dim: dim} }

func (p *Patch) Name() string             { return PatchName }
func (p *Patch) ElementSize() (int, bool) { return p.dim * 4, true }

func (p *Patch) Encode(values any) ([][]byte, error) {
	v, ok := values.(batch.Batch)
	if !ok {
		return nil, fmt.Errorf("attribute: patch expects batch.Batch, got %T", values)
	}
	if v.D != p.dim {
		return nil, fmt.Errorf("attribute: patch dimension mismatch: expected %d, got %d", p.dim, v.D)
	}
	out := make([][]byte, v.N)
	for i := 0; i < v.N; i++ {
		row := v.Row(i)
		buf := make([]byte, p.dim*4)
		for d, f := range row {
			binary.LittleEndian.PutUint32(buf[d*4:], math.Float32bits(f))
		}
		out[i] = buf
	}
	return out, nil
}

func (p *Patch) Decode(chunks [][]byte) (any, error) {
	n := len(chunks)
	data := make([]float32, n*p.dim)
	for i, c := range chunks {
		if len(c) != p.dim*4 {
			return nil, fmt.Errorf("attribute: patch decode: chunk %d has %d bytes, want %d", i, len(c), p.dim*4)
		}
		for d := 0; d < p.dim; d++ {
			data[i*p.dim+d] = math.Float32frombits(binary.LittleEndian.Uint32(c[d*4:]))
		}
	}
	return batch.Batch{N: n, D: p.dim, Data: data}, nil
}

func (p *Patch) Count(values any) int {
	return values.(batch.Batch).N
}

func (p *Patch) Slice(values any, idx []int) (any, error) {
	return values.(batch.Batch).Slice(idx), nil
}

func (p *Patch) Concat(a, b any) (any, error) {
	return a.(batch.Batch).Concat(b.(batch.Batch))
}

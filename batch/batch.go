// Package batch defines the dense vector-batch type shared by hashing,
// attributes, and distance functions. It is a leaf package so that those
// packages can depend on the vector representation without importing the
// root orchestrating package.
package batch

import "fmt"

// Batch is a dense, row-major matrix of N vectors of dimension D.
type Batch struct {
	N, D int
	Data []float32
}

// New allocates a zeroed Batch of shape (n, d).
func New(n, d int) Batch {
	return Batch{N: n, D: d, Data: make([]float32, n*d)}
}

// FromRows builds a Batch from a slice of equal-length rows.
func FromRows(rows [][]float32) (Batch, error) {
	if len(rows) == 0 {
		return Batch{}, nil
	}
	d := len(rows[0])
	b := New(len(rows), d)
	for i, r := range rows {
		if len(r) != d {
			return Batch{}, fmt.Errorf("batch: row %d has %d elements, want %d", i, len(r), d)
		}
		copy(b.Row(i), r)
	}
	return b, nil
}

// Row returns a view of the i-th row. Mutating it mutates the batch.
func (b Batch) Row(i int) []float32 {
	return b.Data[i*b.D : (i+1)*b.D]
}

// Slice returns a new Batch containing only the rows at the given indices.
func (b Batch) Slice(idx []int) Batch {
	out := New(len(idx), b.D)
	for i, ix := range idx {
		copy(out.Row(i), b.Row(ix))
	}
	return out
}

// Concat returns a new Batch with b's rows followed by other's rows.
// b and other must share the same dimension. If either operand is
// empty, the other is returned as is, sharing its Data.
func (b Batch) Concat(other Batch) (Batch, error) {
	if b.N == 0 {
		return other, nil
	}
	if other.N == 0 {
		return b, nil
	}
	if b.D != other.D {
		return Batch{}, fmt.Errorf("batch: concat dimension mismatch: %d vs %d", b.D, other.D)
	}
	out := New(b.N+other.N, b.D)
	copy(out.Data[:len(b.Data)], b.Data)
	copy(out.Data[len(b.Data):], other.Data)
	return out, nil
}

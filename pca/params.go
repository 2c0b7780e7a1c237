// Package pca implements the online-PCA collaborator that produces
// the (mean, eigenvalues, eigenvectors) triple consumed by PCA and
// spectral hashing. Training itself is treated as an external
// concern by the hashing family; this package is the concrete default
// implementation callers plug in, plus the binary round-trip that
// lets the trained parameters be cached and restored.
package pca

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Params is the serializable triple produced by training and consumed
// by PCAHash/SpectralHash.
type Params struct {
	Mean         []float32   // D
	Eigenvalues  []float64   // D, descending
	Eigenvectors [][]float64 // D x D, column j is eigenvector j
}

const paramsMagic uint32 = 0x6e705031 // "npP1"

// WriteTo serializes p as: magic, D, mean (D float32 LE), eigenvalues
// (D float64 LE), eigenvectors (D*D float64 LE, row-major).
func (p Params) WriteTo(w io.Writer) (int64, error) {
	d := len(p.Mean)
	if len(p.Eigenvalues) != d || len(p.Eigenvectors) != d {
		return 0, fmt.Errorf("pca: inconsistent params: mean has %d entries, eigenvalues %d, eigenvectors %d",
			d, len(p.Eigenvalues), len(p.Eigenvectors))
	}
	buf := make([]byte, 0, 8+4*d+8*d+8*d*d)
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[:4], paramsMagic)
	binary.LittleEndian.PutUint32(tmp[4:8], uint32(d))
	buf = append(buf, tmp[:8]...)
	for _, m := range p.Mean {
		binary.LittleEndian.PutUint32(tmp[:4], math.Float32bits(m))
		buf = append(buf, tmp[:4]...)
	}
	for _, e := range p.Eigenvalues {
		binary.LittleEndian.PutUint64(tmp[:8], math.Float64bits(e))
		buf = append(buf, tmp[:8]...)
	}
	for _, row := range p.Eigenvectors {
		if len(row) != d {
			return 0, fmt.Errorf("pca: eigenvector row has %d entries, want %d", len(row), d)
		}
		for _, e := range row {
			binary.LittleEndian.PutUint64(tmp[:8], math.Float64bits(e))
			buf = append(buf, tmp[:8]...)
		}
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadParams reads back a Params value written by Params.WriteTo.
func ReadParams(r io.Reader) (Params, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Params{}, fmt.Errorf("pca: reading header: %w", err)
	}
	if binary.LittleEndian.Uint32(hdr[:4]) != paramsMagic {
		return Params{}, fmt.Errorf("pca: bad magic number")
	}
	d := int(binary.LittleEndian.Uint32(hdr[4:8]))

	mean := make([]float32, d)
	if err := readFloat32s(r, mean); err != nil {
		return Params{}, fmt.Errorf("pca: reading mean: %w", err)
	}
	eigenvalues := make([]float64, d)
	if err := readFloat64s(r, eigenvalues); err != nil {
		return Params{}, fmt.Errorf("pca: reading eigenvalues: %w", err)
	}
	eigenvectors := make([][]float64, d)
	for i := range eigenvectors {
		row := make([]float64, d)
		if err := readFloat64s(r, row); err != nil {
			return Params{}, fmt.Errorf("pca: reading eigenvectors row %d: %w", i, err)
		}
		eigenvectors[i] = row
	}
	return Params{Mean: mean, Eigenvalues: eigenvalues, Eigenvectors: eigenvectors}, nil
}

func readFloat32s(r io.Reader, out []float32) error {
	buf := make([]byte, 4*len(out))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return nil
}

func readFloat64s(r io.Reader, out []float64) error {
	buf := make([]byte, 8*len(out))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return nil
}

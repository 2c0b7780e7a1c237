package pca

import (
	"bytes"
	"math"
	"testing"

	"github.com/ole-ks/nearpy-go/batch"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestAccumulatorFindsDominantAxis(t *testing.T) {
	// All the spread is along x; y is nearly constant, so the top
	// eigenvector should align with the x axis and dominate the
	// eigenvalue spectrum.
	rows := [][]float32{
		{10, 0}, {8, 0.1}, {-8, -0.1}, {-10, 0}, {2, 0.05}, {-2, -0.05},
	}
	v, err := batch.FromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	acc := NewAccumulator(2)
	if err := acc.Add(v); err != nil {
		t.Fatal(err)
	}
	params, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if params.Eigenvalues[0] <= params.Eigenvalues[1] {
		t.Fatalf("eigenvalues not descending: %v", params.Eigenvalues)
	}
	top := params.Eigenvectors
	x0, y0 := math.Abs(top[0][0]), math.Abs(top[1][0])
	if x0 < 0.9 || y0 > 0.2 {
		t.Fatalf("top eigenvector = (%v,%v), want close to (1,0) in absolute value", x0, y0)
	}
}

func TestAccumulatorStreamedEqualsOneShot(t *testing.T) {
	rows := [][]float32{{1, 2}, {3, -1}, {0, 5}, {-2, 2}, {4, 4}}

	oneShot := NewAccumulator(2)
	all, _ := batch.FromRows(rows)
	if err := oneShot.Add(all); err != nil {
		t.Fatal(err)
	}
	wantParams, err := oneShot.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	streamed := NewAccumulator(2)
	for _, r := range rows {
		b, _ := batch.FromRows([][]float32{r})
		if err := streamed.Add(b); err != nil {
			t.Fatal(err)
		}
	}
	gotParams, err := streamed.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	for i := range wantParams.Mean {
		if !approxEqual(float64(wantParams.Mean[i]), float64(gotParams.Mean[i]), 1e-4) {
			t.Fatalf("mean[%d]: one-shot=%v, streamed=%v", i, wantParams.Mean[i], gotParams.Mean[i])
		}
	}
	for i := range wantParams.Eigenvalues {
		if !approxEqual(wantParams.Eigenvalues[i], gotParams.Eigenvalues[i], 1e-4) {
			t.Fatalf("eigenvalue[%d]: one-shot=%v, streamed=%v", i, wantParams.Eigenvalues[i], gotParams.Eigenvalues[i])
		}
	}
}

func TestAccumulatorFinalizeRequiresTwoVectors(t *testing.T) {
	acc := NewAccumulator(2)
	b, _ := batch.FromRows([][]float32{{1, 1}})
	if err := acc.Add(b); err != nil {
		t.Fatal(err)
	}
	if _, err := acc.Finalize(); err == nil {
		t.Fatal("expected error finalizing with fewer than 2 training vectors")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	p := Params{
		Mean:        []float32{1.5, -2.25, 0},
		Eigenvalues: []float64{3.1, 1.2, 0.4},
		Eigenvectors: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadParams(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range p.Mean {
		if got.Mean[i] != p.Mean[i] {
			t.Fatalf("mean[%d] = %v, want %v", i, got.Mean[i], p.Mean[i])
		}
	}
	for i := range p.Eigenvalues {
		if got.Eigenvalues[i] != p.Eigenvalues[i] {
			t.Fatalf("eigenvalue[%d] = %v, want %v", i, got.Eigenvalues[i], p.Eigenvalues[i])
		}
	}
	for i := range p.Eigenvectors {
		for j := range p.Eigenvectors[i] {
			if got.Eigenvectors[i][j] != p.Eigenvectors[i][j] {
				t.Fatalf("eigenvector[%d][%d] = %v, want %v", i, j, got.Eigenvectors[i][j], p.Eigenvectors[i][j])
			}
		}
	}
}

func TestReadParamsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 8))
	if _, err := ReadParams(buf); err == nil {
		t.Fatal("expected error for bad magic number")
	}
}

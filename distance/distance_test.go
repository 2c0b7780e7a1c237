package distance

import (
	"math"
	"testing"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/batch"
)

func TestEuclideanZeroForIdenticalVectors(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates, _ := batch.FromRows([][]float32{{1, 0, 0}, {1, 0, 0.0001}, {-1, 0, 0}})
	e := Euclidean{}
	got, err := e.Compute(query, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0 {
		t.Fatalf("distance to identical vector = %v, want 0", got[0])
	}
	if got[1] <= 0 || got[1] >= got[2] {
		t.Fatalf("expected 0 < dist(v2) < dist(v3), got %v, %v", got[1], got[2])
	}
}

func TestEuclideanIsRMSNotSumOfSquares(t *testing.T) {
	query := []float32{0, 0}
	candidates, _ := batch.FromRows([][]float32{{3, 4}}) // sum sq = 25, mean sq = 12.5
	e := Euclidean{}
	got, err := e.Compute(query, candidates)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Sqrt(12.5)
	if math.Abs(got[0]-want) > 1e-9 {
		t.Fatalf("got %v, want %v (RMS, not sum-based Euclidean)", got[0], want)
	}
}

func TestEuclideanDimensionMismatch(t *testing.T) {
	query := []float32{1, 2}
	candidates, _ := batch.FromRows([][]float32{{1, 2, 3}})
	if _, err := (Euclidean{}).Compute(query, candidates); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEuclideanDefaultAttributeName(t *testing.T) {
	if (Euclidean{}).AttributeName() != attribute.PatchName {
		t.Fatalf("default attribute name should be %q", attribute.PatchName)
	}
	if (Euclidean{Attribute: "custom"}).AttributeName() != "custom" {
		t.Fatal("explicit attribute name should override the default")
	}
}

func TestCorrelationIdenticalVectorsAreZero(t *testing.T) {
	query := []float32{1, 2, 3, 4}
	candidates, _ := batch.FromRows([][]float32{{1, 2, 3, 4}, {2, 4, 6, 8}, {4, 3, 2, 1}})
	c := Correlation{}
	got, err := c.Compute(query, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got[0]) > 1e-9 {
		t.Fatalf("identical vector correlation distance = %v, want ~0", got[0])
	}
	if math.Abs(got[1]) > 1e-9 {
		t.Fatalf("perfectly-correlated (scaled) vector distance = %v, want ~0", got[1])
	}
	if got[2] < got[0] {
		t.Fatalf("anti-correlated candidate should score worse than identical one: %v vs %v", got[2], got[0])
	}
}

func TestCorrelationConstantRowIsMaximallyDistant(t *testing.T) {
	query := []float32{1, 2, 3}
	candidates, _ := batch.FromRows([][]float32{{5, 5, 5}})
	c := Correlation{}
	got, err := c.Compute(query, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Fatalf("zero-variance candidate distance = %v, want 1 (undefined correlation treated as max distance)", got[0])
	}
}

// Package distance implements the concrete distance functions used to
// score candidates pulled from a bucket against a query vector.
package distance

import (
	"fmt"
	"math"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/batch"
)

// Distance scores every row of candidates against query, in order,
// and names the attribute its candidates are drawn from (almost
// always attribute.PatchName).
type Distance interface {
	AttributeName() string
	Compute(query []float32, candidates batch.Batch) ([]float64, error)
}

func checkDims(name string, query []float32, candidates batch.Batch) error {
	if len(query) != candidates.D {
		return fmt.Errorf("distance: %s: dimension mismatch: query has %d, candidates have %d", name, len(query), candidates.D)
	}
	return nil
}

// Euclidean is the root-mean-square distance between the query and
// each candidate: sqrt(mean((candidate-query)^2)) over the shared
// dimension.
type Euclidean struct {
	Attribute string // defaults to attribute.PatchName if empty
}

func (e Euclidean) AttributeName() string {
	if e.Attribute == "" {
		return attribute.PatchName
	}
	return e.Attribute
}

func (e Euclidean) Compute(query []float32, candidates batch.Batch) ([]float64, error) {
	if err := checkDims("euclidean", query, candidates); err != nil {
		return nil, err
	}
	out := make([]float64, candidates.N)
	d := candidates.D
	for i := 0; i < candidates.N; i++ {
		row := candidates.Row(i)
		var sum float64
		for j := 0; j < d; j++ {
			diff := float64(row[j]) - float64(query[j])
			sum += diff * diff
		}
		out[i] = math.Sqrt(sum / float64(d))
	}
	return out, nil
}

// Correlation is one minus the Pearson correlation coefficient between
// the query and each candidate, computed with population (ddof=0)
// statistics as in the original implementation.
type Correlation struct {
	Attribute string
}

func (c Correlation) AttributeName() string {
	if c.Attribute == "" {
		return attribute.PatchName
	}
	return c.Attribute
}

func (c Correlation) Compute(query []float32, candidates batch.Batch) ([]float64, error) {
	if err := checkDims("correlation", query, candidates); err != nil {
		return nil, err
	}
	d := candidates.D
	qMean, qStd := meanStd(query)
	out := make([]float64, candidates.N)
	for i := 0; i < candidates.N; i++ {
		row := candidates.Row(i)
		cMean, cStd := meanStd(row)
		var cov float64
		for j := 0; j < d; j++ {
			cov += (float64(row[j]) - cMean) * (float64(query[j]) - qMean)
		}
		cov /= float64(d)
		if qStd == 0 || cStd == 0 {
			out[i] = 1
			continue
		}
		out[i] = 1 - cov/(qStd*cStd)
	}
	return out, nil
}

func meanStd(row []float32) (mean, std float64) {
	n := float64(len(row))
	for _, f := range row {
		mean += float64(f)
	}
	mean /= n
	var variance float64
	for _, f := range row {
		diff := float64(f) - mean
		variance += diff * diff
	}
	variance /= n
	return mean, math.Sqrt(variance)
}

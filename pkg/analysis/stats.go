// Package analysis computes statistics over already-fetched records.
// It consumes records produced by a resolved client and performs no
// connection management of its own.
package analysis

import (
	"math"
	"sort"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

// FieldStats summarizes a numeric field across a record set.
type FieldStats struct {
	Field       string             `json:"field"`
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	Median      float64            `json:"median"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	StdDev      float64            `json:"std_dev"`
	Percentiles map[string]float64 `json:"percentiles"`
}

// NumericValues extracts the numeric values of field, skipping records
// where the field is absent or non-numeric (including the remote's
// false-means-empty convention).
func NumericValues(records []client.Record, field string) []float64 {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.Float(field); ok {
			values = append(values, v)
		}
	}
	return values
}

// NumericStats computes summary statistics for a numeric field.
// The second return is false when no numeric values exist.
func NumericStats(records []client.Record, field string) (FieldStats, bool) {
	values := NumericValues(records, field)
	if len(values) == 0 {
		return FieldStats{Field: field}, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(sorted))

	return FieldStats{
		Field:  field,
		Count:  len(sorted),
		Mean:   mean,
		Median: percentile(sorted, 50),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: math.Sqrt(variance),
		Percentiles: map[string]float64{
			"p25": percentile(sorted, 25),
			"p50": percentile(sorted, 50),
			"p75": percentile(sorted, 75),
			"p90": percentile(sorted, 90),
		},
	}, true
}

// percentile computes the pth percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

// DefaultBins is the histogram bin count when none is given.
const DefaultBins = 10

// Bucket is one value of a frequency distribution.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// HistogramBin is one interval of a numeric histogram. High is
// exclusive except for the last bin.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Frequency counts the distinct values of field across records,
// ordered by descending count and then by value. Relational fields
// count by label.
func Frequency(records []client.Record, field string) []Bucket {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[displayValue(rec, field)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for value, count := range counts {
		buckets = append(buckets, Bucket{Value: value, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	return buckets
}

// Histogram bins values into equal-width intervals. A non-positive
// bins uses DefaultBins.
func Histogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	min, max := values[0], values[0]
	for _, v := range values {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		return []HistogramBin{{Low: min, High: max, Count: len(values)}}
	}

	width := (max - min) / float64(bins)
	result := make([]HistogramBin, bins)
	for i := range result {
		result[i] = HistogramBin{
			Low:  min + float64(i)*width,
			High: min + float64(i+1)*width,
		}
	}
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		result[idx].Count++
	}
	return result
}

// displayValue renders a record field for frequency counting.
func displayValue(rec client.Record, field string) string {
	if ref, ok := rec.Reference(field); ok {
		return ref.Name
	}
	if s, ok := rec.Str(field); ok {
		return s
	}
	if b, ok := rec.Bool(field); ok {
		if !b {
			return ""
		}
		return "true"
	}
	if f, ok := rec.Float(field); ok {
		return trimFloat(f)
	}
	return ""
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package analysis

import (
	"math"
	"testing"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNumericValues(t *testing.T) {
	records := []client.Record{
		{"amount": float64(10)},
		{"amount": float64(20)},
		{"amount": false}, // empty value convention
		{"amount": "n/a"},
		{"other": float64(99)},
	}

	values := NumericValues(records, "amount")
	if len(values) != 2 {
		t.Fatalf("NumericValues() len = %d, want 2", len(values))
	}
	if values[0] != 10 || values[1] != 20 {
		t.Errorf("NumericValues() = %v, want [10 20]", values)
	}
}

func TestNumericStats(t *testing.T) {
	records := make([]client.Record, 0, 5)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		records = append(records, client.Record{"amount": v})
	}

	stats, ok := NumericStats(records, "amount")
	if !ok {
		t.Fatal("NumericStats() should report values")
	}

	if stats.Count != 5 {
		t.Errorf("Count = %d, want 5", stats.Count)
	}
	if !almostEqual(stats.Mean, 30) {
		t.Errorf("Mean = %v, want 30", stats.Mean)
	}
	if !almostEqual(stats.Median, 30) {
		t.Errorf("Median = %v, want 30", stats.Median)
	}
	if stats.Min != 10 || stats.Max != 50 {
		t.Errorf("Min/Max = %v/%v, want 10/50", stats.Min, stats.Max)
	}
	if !almostEqual(stats.StdDev, math.Sqrt(200)) {
		t.Errorf("StdDev = %v, want sqrt(200)", stats.StdDev)
	}
	if !almostEqual(stats.Percentiles["p25"], 20) {
		t.Errorf("p25 = %v, want 20", stats.Percentiles["p25"])
	}
	if !almostEqual(stats.Percentiles["p90"], 46) {
		t.Errorf("p90 = %v, want 46 (linear interpolation)", stats.Percentiles["p90"])
	}
}

func TestNumericStats_NoValues(t *testing.T) {
	stats, ok := NumericStats([]client.Record{{"amount": "text"}}, "amount")
	if ok {
		t.Error("NumericStats() on non-numeric data should report false")
	}
	if stats.Field != "amount" {
		t.Errorf("Field = %q, want %q", stats.Field, "amount")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{name: "empty", sorted: nil, p: 50, want: 0},
		{name: "single value", sorted: []float64{7}, p: 90, want: 7},
		{name: "median even count", sorted: []float64{1, 2, 3, 4}, p: 50, want: 2.5},
		{name: "interpolated", sorted: []float64{10, 20, 30, 40, 50}, p: 90, want: 46},
		{name: "minimum", sorted: []float64{10, 20}, p: 0, want: 10},
		{name: "maximum", sorted: []float64{10, 20}, p: 100, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.sorted, tt.p); !almostEqual(got, tt.want) {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

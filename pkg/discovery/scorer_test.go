package discovery

import (
	"math"
	"testing"
)

func sampleCandidates() []Candidate {
	return []Candidate{
		{Model: "res.partner", Label: "Contact", Description: "Partners, customers and vendors"},
		{Model: "sale.order", Label: "Sales Order", Description: "Sales orders and quotations"},
		{Model: "sale.order.line", Label: "Sales Order Line"},
		{Model: "account.move", Label: "Journal Entry", Description: "Invoices and journal entries"},
		{Model: "stock.picking", Label: "Transfer"},
	}
}

func TestRank_FindsRelevantModels(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	matches := scorer.Rank("sales order", sampleCandidates())
	if len(matches) == 0 {
		t.Fatal("Rank() found no matches for an obvious query")
	}
	if matches[0].Model != "sale.order" && matches[0].Model != "sale.order.line" {
		t.Errorf("top match = %q, want a sale.order model", matches[0].Model)
	}
	for _, m := range matches {
		if m.Score < scorer.config.Threshold {
			t.Errorf("match %q score %v below threshold", m.Model, m.Score)
		}
	}
}

func TestRank_OrderedByScore(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	matches := scorer.Rank("order", sampleCandidates())

	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches out of order: %v before %v", matches[i-1], matches[i])
		}
		if matches[i].Score == matches[i-1].Score && matches[i].Model < matches[i-1].Model {
			t.Errorf("tie not broken by model name: %q before %q", matches[i-1].Model, matches[i].Model)
		}
	}
}

func TestRank_LimitApplied(t *testing.T) {
	candidates := make([]Candidate, 30)
	for i := range candidates {
		candidates[i] = Candidate{Model: "sale.report", Label: "Sales Report"}
	}
	scorer := NewScorer(Config{Limit: 5})

	matches := scorer.Rank("sales report", candidates)
	if len(matches) > 5 {
		t.Errorf("matches = %d, want at most the limit 5", len(matches))
	}
}

func TestRank_NoMatches(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	matches := scorer.Rank("zzzzqqq", sampleCandidates())
	if len(matches) != 0 {
		t.Errorf("matches = %v, want none for gibberish", matches)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "stop words dropped", in: "the sales orders for a customer", want: []string{"sales", "orders", "customer"}},
		{name: "punctuation stripped", in: "res.partner, contact!", want: []string{"res", "partner", "contact"}},
		{name: "single chars dropped", in: "a b c partner", want: []string{"partner"}},
		{name: "empty", in: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTermMatchScore(t *testing.T) {
	tests := []struct {
		name   string
		search []string
		model  []string
		want   float64
	}{
		{name: "exact full coverage", search: []string{"sales", "order"}, model: []string{"sales", "order", "line"}, want: 1},
		{name: "half coverage", search: []string{"sales", "invoice"}, model: []string{"sales", "order"}, want: 0.5},
		{name: "no terms", search: nil, model: []string{"sales"}, want: 0},
		{name: "no model terms", search: []string{"sales"}, model: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := termMatchScore(tt.search, tt.model)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("termMatchScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTermMatchScore_Substring(t *testing.T) {
	// "order" inside "orders" counts fractionally, not fully.
	got := termMatchScore([]string{"order"}, []string{"orders"})
	if got != 0.8 {
		t.Errorf("termMatchScore() = %v, want 0.8 for a substring match", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"order", "order", 1},
		{"", "order", 0},
		{"order", "", 0},
	}

	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	if got := similarity("order", "ordre"); got <= 0.5 || got >= 1 {
		t.Errorf("similarity(order, ordre) = %v, want a high partial score", got)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"order", "order", 0},
		{"order", "ordre", 2},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNewScorer_Defaults(t *testing.T) {
	scorer := NewScorer(Config{})
	defaults := DefaultConfig()
	if scorer.config.Threshold != defaults.Threshold {
		t.Errorf("Threshold = %v, want default %v", scorer.config.Threshold, defaults.Threshold)
	}
	if scorer.config.Limit != defaults.Limit {
		t.Errorf("Limit = %d, want default %d", scorer.config.Limit, defaults.Limit)
	}
	if scorer.config.TermWeight != defaults.TermWeight {
		t.Errorf("TermWeight = %v, want default %v", scorer.config.TermWeight, defaults.TermWeight)
	}
}

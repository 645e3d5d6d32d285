// Package discovery ranks remote models against a free-text query
// using term matching and sequence similarity. Scoring thresholds are
// heuristic and carried as configuration, not contract.
package discovery

import (
	"regexp"
	"sort"
	"strings"
)

// Config tunes the scorer.
type Config struct {
	// Threshold is the minimum combined score for a match.
	Threshold float64

	// TermWeight and SimilarityWeight blend the two score components.
	TermWeight       float64
	SimilarityWeight float64

	// Limit caps the number of returned matches.
	Limit int
}

// DefaultConfig returns the stock heuristic weights.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.3,
		TermWeight:       0.7,
		SimilarityWeight: 0.3,
		Limit:            10,
	}
}

// Candidate is one model to score.
type Candidate struct {
	// Model is the technical model name.
	Model string

	// Label is the model's display name.
	Label string

	// Description is free-text model documentation, when available.
	Description string
}

// Match is a scored candidate.
type Match struct {
	Model string  `json:"model"`
	Label string  `json:"name"`
	Score float64 `json:"score"`
}

// Scorer ranks candidates against queries.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer. Zero config fields fall back to defaults.
func NewScorer(cfg Config) *Scorer {
	defaults := DefaultConfig()
	if cfg.TermWeight <= 0 && cfg.SimilarityWeight <= 0 {
		cfg.TermWeight = defaults.TermWeight
		cfg.SimilarityWeight = defaults.SimilarityWeight
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaults.Limit
	}
	return &Scorer{config: cfg}
}

// Rank scores every candidate against query and returns matches above
// the threshold, highest first. Equal scores order by model name so
// ranking is deterministic.
func (s *Scorer) Rank(query string, candidates []Candidate) []Match {
	searchTerms := tokenize(query)

	matches := make([]Match, 0)
	for _, cand := range candidates {
		matchText := cand.Model + " " + cand.Label + " " + cand.Description
		termScore := termMatchScore(searchTerms, tokenize(matchText))
		seqScore := similarity(strings.ToLower(query), strings.ToLower(matchText))

		score := termScore*s.config.TermWeight + seqScore*s.config.SimilarityWeight
		if score >= s.config.Threshold {
			matches = append(matches, Match{
				Model: cand.Model,
				Label: cand.Label,
				Score: score,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Model < matches[j].Model
	})
	if len(matches) > s.config.Limit {
		matches = matches[:s.config.Limit]
	}
	return matches
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// stopWords are skipped during tokenization.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "is": true, "are": true, "was": true, "were": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "by": true, "of": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "from": true,
	"as": true, "has": true, "have": true, "had": true,
}

// tokenize lowercases, strips punctuation and drops stop words and
// single-character tokens.
func tokenize(text string) []string {
	text = nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > 1 && !stopWords[word] {
			terms = append(terms, word)
		}
	}
	return terms
}

// termMatchScore measures how well searchTerms are covered by
// modelTerms. Exact matches count fully; substring and fuzzy matches
// count fractionally.
func termMatchScore(searchTerms, modelTerms []string) float64 {
	if len(searchTerms) == 0 || len(modelTerms) == 0 {
		return 0
	}

	modelSet := make(map[string]bool, len(modelTerms))
	for _, term := range modelTerms {
		modelSet[term] = true
	}

	matches := 0.0
	for _, term := range searchTerms {
		if modelSet[term] {
			matches++
			continue
		}
		for _, modelTerm := range modelTerms {
			if len(term) <= 3 || len(modelTerm) <= 3 {
				continue
			}
			if strings.Contains(modelTerm, term) {
				matches += 0.8
				break
			}
			if strings.Contains(term, modelTerm) {
				matches += 0.6
				break
			}
			if sim := similarity(term, modelTerm); sim > 0.8 {
				matches += 0.5
				break
			} else if sim > 0.6 {
				matches += 0.3
				break
			}
		}
	}
	return matches / float64(len(searchTerms))
}

// similarity is a normalized edit-distance ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	dist := levenshtein(a, b)
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(dist)/float64(longest)
}

// levenshtein computes edit distance with a rolling single-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			insert := row[j-1] + 1
			remove := row[j] + 1
			replace := prev
			if ra[i-1] != rb[j-1] {
				replace++
			}
			prev = row[j]
			row[j] = min3(insert, remove, replace)
		}
	}
	return row[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

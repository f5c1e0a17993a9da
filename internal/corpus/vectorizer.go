package corpus

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
)

// Vectorizer maps term-count documents onto tf-idf weighted, L2 normalised
// sparse rows. The vocabulary and idf weights are learned once from the
// training split and reused for every later Transform.
type Vectorizer struct {
	vocab map[string]int
	terms []string
	idf   []float64
}

// FitVectorizer learns the vocabulary and document frequencies of docs.
// Terms are assigned columns in lexical order so that column ids are stable
// across runs.
func FitVectorizer(docs []map[string]int) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		for term, n := range doc {
			if n > 0 {
				df[term]++
			}
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
	}
	total := int64(len(docs))
	for col, term := range terms {
		v.vocab[term] = col
		v.idf[col] = computeIDF(total, int64(df[term]))
	}
	return v
}

// Dim returns the vocabulary size.
func (v *Vectorizer) Dim() int {
	return len(v.terms)
}

// Term returns the term that owns column col.
func (v *Vectorizer) Term(col int) string {
	return v.terms[col]
}

// Transform vectorizes docs; terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(docs []map[string]int) feature.Matrix {
	rows := make([]feature.Vector, len(docs))
	for i, doc := range docs {
		weights := make(map[int]float64, len(doc))
		for term, n := range doc {
			col, ok := v.vocab[term]
			if !ok || n <= 0 {
				continue
			}
			weights[col] = float64(n) * v.idf[col]
		}
		row := feature.FromMap(weights)
		if norm := row.Norm(); norm > 0 {
			row = row.Scale(1 / norm)
		}
		rows[i] = row
	}
	return feature.Matrix{Rows: rows, Dim: v.Dim()}
}

// computeIDF is the smoothed inverse document frequency ln((1+N)/(1+df)) + 1.
func computeIDF(totalDocs int64, docFreq int64) float64 {
	return math.Log(float64(1+totalDocs)/float64(1+docFreq)) + 1
}

// Package scoring picks the single most informative pool item for the next
// acquisition. Every strategy reduces a classifier's per-class probabilities
// to one raw score per pool item, optionally scaled by density weights; the
// item with the lowest final score is selected.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

// Strategy names an acquisition rule.
type Strategy string

const (
	Random         Strategy = "random"
	LeastConfident Strategy = "least confident"
	Margin         Strategy = "margin sampling"
	Entropy        Strategy = "entropy-based"
)

// All returns every strategy in reporting order.
func All() []Strategy {
	return []Strategy{Random, LeastConfident, Margin, Entropy}
}

var aliases = map[string]Strategy{
	"random":          Random,
	"r":               Random,
	"least confident": LeastConfident,
	"least-confident": LeastConfident,
	"l":               LeastConfident,
	"margin sampling": Margin,
	"margin":          Margin,
	"m":               Margin,
	"entropy-based":   Entropy,
	"entropy":         Entropy,
	"e":               Entropy,
}

// ParseStrategy resolves a canonical strategy name or one of its aliases.
func ParseStrategy(name string) (Strategy, error) {
	if s, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, name)
}

// ParseStrategies resolves a list of names. "all" expands to All. Duplicates
// are dropped, keeping first-seen order.
func ParseStrategies(names []string) ([]Strategy, error) {
	var out []Strategy
	seen := make(map[Strategy]struct{})
	add := func(s Strategy) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			for _, s := range All() {
				add(s)
			}
			continue
		}
		s, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		add(s)
	}
	return out, nil
}

// Source is the random capability consumed by the random strategy.
type Source interface {
	Intn(n int) int
}

// Model is the part of a trained classifier the engine queries.
type Model interface {
	PredictProba(x feature.Matrix) (*mat.Dense, error)
}

// Scores reduces each probability row to the raw score of strategy. The
// result is a new slice; proba is not modified.
func Scores(strategy Strategy, proba mat.Matrix) ([]float64, error) {
	r, k := proba.Dims()
	out := make([]float64, r)
	row := make([]float64, k)
	for i := 0; i < r; i++ {
		mat.Row(row, i, proba)
		switch strategy {
		case LeastConfident:
			out[i] = floats.Max(row)
		case Margin:
			out[i] = margin(row)
		case Entropy:
			out[i] = negEntropy(row)
		default:
			return nil, fmt.Errorf("%w: %q has no probability score", apperrors.ErrUnknownStrategy, strategy)
		}
	}
	return out, nil
}

// margin is the gap between the two largest probabilities. A single-class
// row has margin equal to its only probability.
func margin(row []float64) float64 {
	first, second := math.Inf(-1), math.Inf(-1)
	for _, p := range row {
		switch {
		case p > first:
			first, second = p, first
		case p > second:
			second = p
		}
	}
	if math.IsInf(second, -1) {
		return first
	}
	return first - second
}

// negEntropy is sum p*ln(p), with zero probabilities contributing zero.
func negEntropy(row []float64) float64 {
	var sum float64
	for _, p := range row {
		if p > 0 {
			sum += p * math.Log(p)
		}
	}
	return sum
}

// Weight multiplies scores element-wise by densities into a new slice.
func Weight(scores, densities []float64) ([]float64, error) {
	if len(scores) != len(densities) {
		return nil, fmt.Errorf("%w: %d scores but %d density weights", apperrors.ErrDimensionMismatch, len(scores), len(densities))
	}
	out := make([]float64, len(scores))
	floats.MulTo(out, scores, densities)
	return out, nil
}

// ArgMin returns the index of the first minimum of scores.
func ArgMin(scores []float64) int {
	return floats.MinIdx(scores)
}

// Request is one selection query against the current pool.
type Request struct {
	Strategy Strategy
	Model    Model
	Pool     feature.Matrix
	// Densities holds one weight per pool row, aligned with Pool. Nil
	// disables density weighting.
	Densities []float64
	Rand      Source
}

// Select returns the pool-relative index of the item to acquire next.
func Select(ctx context.Context, req Request) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := req.Pool.Len()
	if p == 0 {
		return 0, apperrors.ErrEmptyPool
	}
	if req.Strategy == Random {
		if req.Rand == nil {
			return 0, fmt.Errorf("%w: random strategy needs a random source", apperrors.ErrInvalidInput)
		}
		return req.Rand.Intn(p), nil
	}
	if req.Model == nil {
		return 0, fmt.Errorf("%w: no trained model", apperrors.ErrInvalidInput)
	}
	proba, err := req.Model.PredictProba(req.Pool)
	if err != nil {
		return 0, fmt.Errorf("predicting pool probabilities: %w", err)
	}
	scores, err := Scores(req.Strategy, proba)
	if err != nil {
		return 0, err
	}
	if req.Densities != nil {
		if scores, err = Weight(scores, req.Densities); err != nil {
			return 0, err
		}
	}
	return ArgMin(scores), nil
}

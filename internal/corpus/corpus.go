// Package corpus provides the labeled document collections consumed by the
// active learning loop: a training/pool split and a held-out test split,
// each an immutable sparse feature matrix plus one integer label per row.
package corpus

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

// Corpus is a fixed feature matrix with one label per row. It must not be
// mutated after construction.
type Corpus struct {
	Name       string
	X          feature.Matrix
	Labels     []int
	ClassNames []string
}

// New validates the shape of x and labels and returns a Corpus.
func New(name string, x feature.Matrix, labels []int, classNames []string) (*Corpus, error) {
	if x.Len() != len(labels) {
		return nil, fmt.Errorf("%w: %s has %d rows but %d labels", apperrors.ErrCorpus, name, x.Len(), len(labels))
	}
	if err := x.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrCorpus, name, err)
	}
	for i, y := range labels {
		if y < 0 {
			return nil, fmt.Errorf("%w: %s row %d has negative label %d", apperrors.ErrCorpus, name, i, y)
		}
		if len(classNames) > 0 && y >= len(classNames) {
			return nil, fmt.Errorf("%w: %s row %d label %d outside %d classes", apperrors.ErrCorpus, name, i, y, len(classNames))
		}
	}
	return &Corpus{Name: name, X: x, Labels: labels, ClassNames: classNames}, nil
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	return len(c.Labels)
}

// NumClasses returns the number of classes, taken from ClassNames when known
// and from the largest label otherwise.
func (c *Corpus) NumClasses() int {
	if len(c.ClassNames) > 0 {
		return len(c.ClassNames)
	}
	top := -1
	for _, y := range c.Labels {
		if y > top {
			top = y
		}
	}
	return top + 1
}

// AlignClasses returns a copy of c whose labels index classNames instead of
// c.ClassNames. A class of c missing from classNames is an error.
func (c *Corpus) AlignClasses(classNames []string) (*Corpus, error) {
	classID := make(map[string]int, len(classNames))
	for i, name := range classNames {
		classID[name] = i
	}
	labels := make([]int, len(c.Labels))
	for i, y := range c.Labels {
		name := strconv.Itoa(y)
		if y < len(c.ClassNames) {
			name = c.ClassNames[y]
		}
		id, ok := classID[name]
		if !ok {
			return nil, fmt.Errorf("%w: class %q of %s row %d not present in training split", apperrors.ErrCorpus, name, c.Name, i)
		}
		labels[i] = id
	}
	return New(c.Name, c.X, labels, classNames)
}

// Rows returns the feature rows at idx.
func (c *Corpus) Rows(idx []int) feature.Matrix {
	return c.X.Select(idx)
}

// LabelsAt returns the labels at idx.
func (c *Corpus) LabelsAt(idx []int) []int {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = c.Labels[i]
	}
	return out
}

// Fingerprint returns a stable content hash used as a cache key.
func (c *Corpus) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		h.Write(buf[:])
	}
	put(uint64(c.X.Dim))
	put(uint64(c.X.Len()))
	for i, row := range c.X.Rows {
		put(uint64(c.Labels[i]))
		put(uint64(row.Nnz()))
		for k, idx := range row.Indices {
			put(uint64(idx))
			put(math.Float64bits(row.Values[k]))
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}

// SeedPerClass draws one uniformly random row for every class, in class
// order. A class without rows is an error.
func SeedPerClass(c *Corpus, rnd *rand.Rand) ([]int, error) {
	byClass := make([][]int, c.NumClasses())
	for i, y := range c.Labels {
		byClass[y] = append(byClass[y], i)
	}
	seeds := make([]int, 0, len(byClass))
	for k, rows := range byClass {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: class %d has no rows to seed from", apperrors.ErrCorpus, k)
		}
		seeds = append(seeds, rows[rnd.Intn(len(rows))])
	}
	return seeds, nil
}

// ParseIndices parses a comma separated list of row ids such as "3,17,42".
func ParseIndices(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: bad row id %q", apperrors.ErrInvalidInput, p)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty row id list", apperrors.ErrInvalidInput)
	}
	return out, nil
}

// FormatIndices renders row ids the way ParseIndices reads them.
func FormatIndices(idx []int) string {
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = strconv.Itoa(i)
	}
	return strings.Join(parts, ",")
}

// Split returns every row id of an n-row corpus that is not in train, in
// ascending order. train must hold distinct ids inside [0, n).
func Split(n int, train []int) ([]int, error) {
	inTrain := make(map[int]struct{}, len(train))
	for _, i := range train {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: training row %d outside [0, %d)", apperrors.ErrInvalidInput, i, n)
		}
		if _, dup := inTrain[i]; dup {
			return nil, fmt.Errorf("%w: training row %d listed twice", apperrors.ErrInvalidInput, i)
		}
		inTrain[i] = struct{}{}
	}
	pool := make([]int, 0, n-len(train))
	for i := 0; i < n; i++ {
		if _, ok := inTrain[i]; !ok {
			pool = append(pool, i)
		}
	}
	return pool, nil
}

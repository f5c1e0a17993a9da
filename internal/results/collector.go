// Package results holds the sinks that receive completed learning curves:
// an in-memory collector that renders the comparison table, a PostgreSQL
// store, and a fan-out over several sinks.
package results

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
)

// Collector keeps curves in arrival order. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	curves []learner.Curve
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(_ context.Context, curve learner.Curve) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.curves = append(c.curves, curve)
	return nil
}

// Curves returns a snapshot of the recorded curves.
func (c *Collector) Curves() []learner.Curve {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]learner.Curve, len(c.curves))
	copy(out, c.curves)
	return out
}

// Table writes a header row of strategy names and one row per training-set
// size, tab separated, with accuracies formatted by %f. Curves of different
// lengths leave empty cells.
func (c *Collector) Table(w io.Writer) error {
	curves := c.Curves()
	if len(curves) == 0 {
		return nil
	}
	names := make([]string, len(curves))
	rows := 0
	for i, curve := range curves {
		names[i] = string(curve.Strategy)
		rows = max(rows, len(curve.Points))
	}
	if _, err := fmt.Fprintf(w, "\t%s\n", strings.Join(names, "\t")); err != nil {
		return err
	}

	cells := make([]string, len(curves))
	for i := 0; i < rows; i++ {
		size := -1
		for k, curve := range curves {
			cells[k] = ""
			if i < len(curve.Points) {
				cells[k] = fmt.Sprintf("%f", curve.Points[i].Accuracy)
				if size < 0 {
					size = curve.Points[i].TrainSize
				}
			}
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", size, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

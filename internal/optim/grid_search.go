// Package optim tunes controller gains by exhaustive search over a closed-loop
// cost, typically the tracking-error RMS of a simulated flight.
package optim

import (
	"context"
	"errors"
	"math"
)

// ErrNoEvaluation indicates that no grid point produced a finite cost.
var ErrNoEvaluation = errors.New("optim: no grid point could be evaluated")

// Axis is one searched parameter and the values tried for it.
type Axis struct {
	Name   string
	Values []float64
}

// EvalFunc runs one closed-loop scenario with the given parameters and
// returns its cost. Lower is better. An error skips the point; a diverging
// gain combination is expected, not fatal.
type EvalFunc func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch tries every combination of the axis values.
type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Points returns the number of combinations the search will evaluate.
func (g *GridSearch) Points() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search evaluates the full grid and returns the best parameters and their
// cost. Points whose evaluation fails or returns a non-finite cost are
// skipped; when every point is skipped the result is ErrNoEvaluation.
func (g *GridSearch) Search(ctx context.Context, evaluate EvalFunc) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), evaluate, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoEvaluation
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate EvalFunc,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.axes) {
		cost, err := evaluate(ctx, current)
		if err != nil || math.IsNaN(cost) || math.IsInf(cost, 0) {
			return nil
		}
		if cost < *best {
			*best = cost
			picked := make(map[string]float64, len(current))
			for k, v := range current {
				picked[k] = v
			}
			*bestParams = picked
		}
		return nil
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		current[axis.Name] = val
		if err := g.searchRecursive(ctx, depth+1, current, evaluate, best, bestParams); err != nil {
			return err
		}
	}
	delete(current, axis.Name)
	return nil
}

// Span builds n evenly spaced values from lo to hi inclusive, a convenience
// for building axes around a nominal gain.
func Span(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	vals := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range vals {
		vals[i] = lo + float64(i)*step
	}
	return vals
}

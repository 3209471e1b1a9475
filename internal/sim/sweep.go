package sim

import (
	"context"
	"sync"
)

// Sweep runs one closed-loop scenario per variant in parallel. Controllers
// and metrics are stateful, so the build function must return a freshly
// constructed simulator and initial state for every call; nothing may be
// shared between variants.
type Sweep struct {
	build       func(variant int) (*Simulator, State)
	numVariants int
}

func NewSweep(build func(variant int) (*Simulator, State), numVariants int) *Sweep {
	return &Sweep{build: build, numVariants: numVariants}
}

func (s *Sweep) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, s.numVariants)
	errs := make([]error, s.numVariants)

	var wg sync.WaitGroup
	for i := 0; i < s.numVariants; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			simulator, x0 := s.build(idx)
			results[idx], errs[idx] = simulator.Run(ctx, x0, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

package resilience

import (
	"context"
	"sync"

	"github.com/go-kit/kit/endpoint"
)

// window keeps the outcomes of the last size calls. The failure rate of
// a breaker is measured over it, so old successes stop diluting a burst
// of failures.
type window struct {
	mu       sync.Mutex
	outcomes []bool
	next     int
	filled   int
	failures int
}

func newWindow(size int) *window {
	return &window{outcomes: make([]bool, size)}
}

func (w *window) add(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.failures--
		}
	} else {
		w.filled++
	}

	w.outcomes[w.next] = failed
	if failed {
		w.failures++
	}

	w.next = (w.next + 1) % len(w.outcomes)
}

// rate returns the number of recorded calls and the failure percentage.
func (w *window) rate() (uint32, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return 0, 0
	}

	return uint32(w.filled), float64(w.failures) / float64(w.filled) * 100
}

func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.outcomes)
	w.next = 0
	w.filled = 0
	w.failures = 0
}

func (w *window) record(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		response, err := next(ctx, request)
		w.add(err != nil)
		return response, err
	}
}

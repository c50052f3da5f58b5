package transfer

import "sync"

// ProgressFunc receives a human readable step and the completion percentage
type ProgressFunc func(message string, percent int)

// progressTracker keeps reported percentages monotonic and within 0..100
type progressTracker struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

func (p *progressTracker) report(message string, percent int) {
	if p == nil || p.fn == nil {
		return
	}
	p.mu.Lock()
	if percent > 100 {
		percent = 100
	}
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	p.mu.Unlock()

	p.fn(message, percent)
}

// step maps pass i of n onto the range [from, to]
func step(i, n, from, to int) int {
	if n <= 0 {
		return to
	}
	return from + (to-from)*(i+1)/n
}

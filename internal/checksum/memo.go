package checksum

import (
	"context"
	"sync"
)

// Memo computes each file's checksum at most once per run. Safe for
// concurrent use from multiple workers; concurrent callers asking for the
// same path share a single computation.
type Memo struct {
	algo Algorithm

	mu      sync.Mutex
	entries map[string]*memoEntry
}

type memoEntry struct {
	once   sync.Once
	digest string
	err    error
}

// NewMemo creates a Memo computing digests with the given algorithm.
func NewMemo(algo Algorithm) *Memo {
	return &Memo{
		algo:    algo,
		entries: make(map[string]*memoEntry),
	}
}

// Algorithm returns the digest algorithm this memo computes.
func (m *Memo) Algorithm() Algorithm {
	return m.algo
}

// Sum returns the digest for path, computing it on first use.
// Errors are memoized too: a file that failed once is not retried
// within the run.
func (m *Memo) Sum(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		e = &memoEntry{}
		m.entries[path] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.digest, e.err = Sum(ctx, path, m.algo)
	})
	return e.digest, e.err
}

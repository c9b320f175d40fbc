/**
 * @description
 * Debounced recipient search. As the user types, each input change schedules
 * a resolution after a quiet period; scheduling again within that period
 * cancels the pending one. Completions are keyed by a monotonically
 * increasing generation so a slow lookup that finishes after a newer
 * keystroke is discarded instead of clobbering the newer result.
 */

package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zimpay/transfer-service/internal/domain"
)

// SearchOutcome is delivered to the apply callback for every search that
// completes while still current.
type SearchOutcome struct {
	Input     string
	Recipient *domain.Recipient
	Err       error
}

// Searcher coalesces rapid input changes into one resolution per quiet
// period. All methods are safe for concurrent use; the apply callback runs
// on the timer goroutine (or the caller's for SearchNow).
type Searcher struct {
	delay   time.Duration
	resolve func(ctx context.Context, input string) (*domain.Recipient, error)
	apply   func(SearchOutcome)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewSearcher creates a Searcher. delay is the debounce quiet period.
func NewSearcher(delay time.Duration, resolve func(ctx context.Context, input string) (*domain.Recipient, error), apply func(SearchOutcome)) *Searcher {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &Searcher{delay: delay, resolve: resolve, apply: apply}
}

// NewRecipientSearcher wires a Searcher to the service's recipient
// resolution for the given user.
func (s *Service) NewRecipientSearcher(currentUserID uuid.UUID, apply func(SearchOutcome)) *Searcher {
	resolve := func(ctx context.Context, input string) (*domain.Recipient, error) {
		return s.ResolveRecipient(ctx, input, currentUserID)
	}
	return NewSearcher(s.searchDebounce, resolve, apply)
}

// Schedule queues a resolution of input after the quiet period, superseding
// any pending or in-flight one.
func (s *Searcher) Schedule(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.run(gen, input)
	})
}

// SearchNow resolves input immediately, superseding anything pending. Used
// by the explicit search action.
func (s *Searcher) SearchNow(input string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.run(gen, input)
}

// Cancel discards any pending or in-flight resolution without scheduling a
// new one.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher) run(gen uint64, input string) {
	if s.stale(gen) {
		return
	}
	recipient, err := s.resolve(context.Background(), input)
	// Re-check after the lookup: a newer input may have arrived while this
	// one was in flight.
	if s.stale(gen) {
		return
	}
	s.apply(SearchOutcome{Input: input, Recipient: recipient, Err: err})
}

func (s *Searcher) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.gen
}

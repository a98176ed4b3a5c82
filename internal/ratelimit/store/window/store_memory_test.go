package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 3
	testWindow = 300 * time.Second
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestAllow() {
	s.Run("first request admitted", func() {
		decision, err := s.store.Allow(s.ctx, "10.0.0.1", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(decision.Allowed)
		s.Equal(testLimit, decision.Limit)
		s.Equal(testLimit-1, decision.Remaining)
	})

	s.Run("requests up to limit admitted", func() {
		for i := range testLimit {
			decision, err := s.store.Allow(s.ctx, "10.0.0.2", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(decision.Allowed, "request %d should be admitted", i+1)
		}
	})

	s.Run("request over limit rejected", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "10.0.0.3", testLimit, testWindow)
			require.NoError(s.T(), err)
		}
		decision, err := s.store.Allow(s.ctx, "10.0.0.3", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.Equal(0, decision.Remaining)
		s.Positive(decision.RetryAfter)
	})

	s.Run("rejected request is not recorded", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "10.0.0.4", testLimit, testWindow)
			require.NoError(s.T(), err)
		}
		for range 5 {
			_, err := s.store.Allow(s.ctx, "10.0.0.4", testLimit, testWindow)
			require.NoError(s.T(), err)
		}

		count, err := s.store.Count(s.ctx, "10.0.0.4", testWindow)
		s.Require().NoError(err)
		s.Equal(testLimit, count)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "10.0.0.5", testLimit, testWindow)
			require.NoError(s.T(), err)
		}
		decision, err := s.store.Allow(s.ctx, "10.0.0.6", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})
}

func (s *MemoryStoreSuite) TestWindowExpiry() {
	s.Run("stale timestamps are pruned on next check", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "10.0.1.1", testLimit, testWindow)
			require.NoError(s.T(), err)
		}

		// Age the first request past the window boundary; the pruned slot
		// frees exactly one admission.
		s.store.mu.Lock()
		s.store.windows["10.0.1.1"][0] = time.Now().Add(-testWindow - time.Second)
		s.store.mu.Unlock()

		decision, err := s.store.Allow(s.ctx, "10.0.1.1", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(decision.Allowed)

		decision, err = s.store.Allow(s.ctx, "10.0.1.1", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(decision.Allowed)
	})

	s.Run("fully stale window is dropped from the map", func() {
		_, err := s.store.Allow(s.ctx, "10.0.1.2", testLimit, testWindow)
		s.Require().NoError(err)

		s.store.mu.Lock()
		s.store.windows["10.0.1.2"][0] = time.Now().Add(-2 * testWindow)
		s.store.mu.Unlock()

		count, err := s.store.Count(s.ctx, "10.0.1.2", testWindow)
		s.Require().NoError(err)
		s.Equal(0, count)
	})
}

func (s *MemoryStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "10.0.2.1", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.Reset(s.ctx, "10.0.2.1"))

	decision, err := s.store.Allow(s.ctx, "10.0.2.1", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(testLimit-1, decision.Remaining)
}

// The check-then-act sequence must be atomic per key: under concurrent
// dispatch no more than `limit` requests may ever be admitted in one window.
func (s *MemoryStoreSuite) TestConcurrentAdmission() {
	const goroutines = 50

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := s.store.Allow(s.ctx, "10.0.3.1", testLimit, testWindow)
			require.NoError(s.T(), err)
			if decision.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(testLimit, admitted)
}

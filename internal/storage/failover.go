package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
)

// recoveryInterval is how long a failed primary is benched before the
// decorator probes it again.
const recoveryInterval = time.Minute

// FailoverStore serves from a primary store and degrades to a fallback
// when the primary errors. Writes during an outage land only in the
// fallback; divergence is accepted and logged, not reconciled.
type FailoverStore struct {
	primary  domain.Store
	fallback domain.Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback domain.Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("Primary store failed, falling back")
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

// shouldRetryPrimary allows one probe per recovery interval while down.
func (s *FailoverStore) shouldRetryPrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverStore) recover() {
	if s.isDown.Load() {
		s.logger.Info().Msg("Primary store recovered")
		s.isDown.Store(false)
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.shouldRetryPrimary() {
		value, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			s.recover()
			return value, ok, nil
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key, value string) error {
	if s.shouldRetryPrimary() {
		if err := s.primary.Set(ctx, key, value); err == nil {
			s.recover()
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.Set(ctx, key, value)
}

func (s *FailoverStore) SetMulti(ctx context.Context, pairs map[string]string) error {
	if s.shouldRetryPrimary() {
		if err := s.primary.SetMulti(ctx, pairs); err == nil {
			s.recover()
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.SetMulti(ctx, pairs)
}

func (s *FailoverStore) Remove(ctx context.Context, key string) error {
	if s.shouldRetryPrimary() {
		if err := s.primary.Remove(ctx, key); err == nil {
			s.recover()
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.Remove(ctx, key)
}

func (s *FailoverStore) MultiRemove(ctx context.Context, keys []string) error {
	if s.shouldRetryPrimary() {
		if err := s.primary.MultiRemove(ctx, keys); err == nil {
			s.recover()
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.MultiRemove(ctx, keys)
}

func (s *FailoverStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.shouldRetryPrimary() {
		keys, err := s.primary.Keys(ctx, prefix)
		if err == nil {
			s.recover()
			return keys, nil
		}
		s.markDown(err)
	}
	return s.fallback.Keys(ctx, prefix)
}

func (s *FailoverStore) Close() error {
	err := s.primary.Close()
	if ferr := s.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

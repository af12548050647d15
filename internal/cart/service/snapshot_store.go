package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/cart/cache"
	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/repository"
	"github.com/fjod/storefront/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotStore persists cart snapshots in the repository with a versioned
// write-through cache in front. It satisfies store.Persister.
type SnapshotStore struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // collapses concurrent misses for one session
}

func NewSnapshotStore(repo repository.CartRepository, cache cache.CartCache) *SnapshotStore {
	return &SnapshotStore{
		repo:  repo,
		cache: cache,
	}
}

func (s *SnapshotStore) Load(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart.Lines, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("cart cache get failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, sessionID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return []domain.CartLine(nil), nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, sessionID, cart); err != nil {
				logger.Get().Warn("cart cache set failed", zap.String("session_id", sessionID), zap.Error(err))
			}
		}()

		return cart.Lines, nil
	})
	if err != nil {
		return nil, err
	}

	lines := v.([]domain.CartLine)
	// singleflight hands the same slice to every waiter
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *SnapshotStore) Save(ctx context.Context, sessionID string, lines []domain.CartLine) error {
	// Mongo keeps milliseconds, so the cached version matches what a later read returns.
	cart := &domain.Cart{SessionID: sessionID, Lines: lines, UpdatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return err
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(cacheCtx, sessionID, cart); err != nil {
		logger.Get().Warn("cart cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		s.invalidateCache(sessionID, cart.UpdatedAt)
	}
	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		return err
	}
	s.invalidateCache(sessionID, time.Now().UTC())
	return nil
}

func (s *SnapshotStore) invalidateCache(sessionID string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID, at); err != nil {
		logger.Get().Warn("cart cache invalidate failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

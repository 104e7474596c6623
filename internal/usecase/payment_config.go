package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
)

const (
	configCacheKey = "payment:config"
	configCacheTTL = 5 * time.Minute
)

// PaymentConfigService serves the tunable payment parameters from a
// process-local cache, then the shared cache, then the database, populating
// each faster layer on a miss. The local layer is explicit per-instance
// state, constructed once at process start; in a multi-instance deployment
// other instances may serve stale config for up to one local TTL after an
// update, which is an accepted staleness window.
type PaymentConfigService struct {
	Repo  PaymentConfigRepositoryInterface
	Cache CacheStore

	mu         sync.Mutex
	local      *entity.PaymentConfig
	localSetAt time.Time
}

func NewPaymentConfigService(repo PaymentConfigRepositoryInterface, cache CacheStore) *PaymentConfigService {
	return &PaymentConfigService{Repo: repo, Cache: cache}
}

func (s *PaymentConfigService) GetConfig(ctx context.Context) (*entity.PaymentConfig, error) {
	if cfg := s.fromLocal(); cfg != nil {
		return cfg, nil
	}

	var cached entity.PaymentConfig
	ok, err := s.Cache.Get(ctx, configCacheKey, &cached)
	if err != nil {
		// Shared cache being down degrades to a database read.
		log.Printf("[config] shared cache read failed, falling through: %v", err)
	}
	if ok {
		s.setLocal(&cached)
		return &cached, nil
	}

	cfg, err := s.Repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, NewDomainError(CodeConfigNotFound, "payment config row missing")
	}

	if err := s.Cache.Set(ctx, configCacheKey, cfg, configCacheTTL); err != nil {
		log.Printf("[config] shared cache populate failed: %v", err)
	}
	s.setLocal(cfg)
	return cfg, nil
}

// UpdateConfig validates the merged result (stored config overlaid with the
// partial update) and persists it, then invalidates both cache layers so the
// next GetConfig refetches from the database. Checkouts already priced keep
// their snapshot.
func (s *PaymentConfigService) UpdateConfig(ctx context.Context, u entity.PaymentConfigUpdate) (*entity.PaymentConfig, error) {
	current, err := s.Repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NewDomainError(CodeConfigNotFound, "payment config row missing")
	}

	merged := current.Merge(u)
	if err := merged.Validate(); err != nil {
		return nil, NewDomainError(CodeValidation, err.Error())
	}

	if u.Empty() {
		return current, nil
	}

	updated, err := s.Repo.Update(ctx, current.ID, u)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	log.Printf("[config] payment config updated id=%s", updated.ID)
	return updated, nil
}

func (s *PaymentConfigService) invalidate(ctx context.Context) {
	s.mu.Lock()
	s.local = nil
	s.localSetAt = time.Time{}
	s.mu.Unlock()

	if err := s.Cache.Delete(ctx, configCacheKey); err != nil {
		log.Printf("[config] shared cache invalidation failed: %v", err)
	}
}

func (s *PaymentConfigService) fromLocal() *entity.PaymentConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local != nil && time.Since(s.localSetAt) < configCacheTTL {
		return s.local
	}
	return nil
}

func (s *PaymentConfigService) setLocal(cfg *entity.PaymentConfig) {
	s.mu.Lock()
	s.local = cfg
	s.localSetAt = time.Now()
	s.mu.Unlock()
}

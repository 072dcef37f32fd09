package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/cache"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
)

// Resolver resolves an identity's role from the source of truth
type Resolver interface {
	Resolve(ctx context.Context, identityID uuid.UUID) models.RoleResolution
}

// RoleStore is the process-wide holder of resolved roles. Reads go through a redis
// cache; auth events on the bus invalidate entries and push fresh resolutions to
// subscribers.
type RoleStore struct {
	resolver Resolver
	cache    *cache.Helper
	ttl      time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]chan models.RoleResolution
	nextID int
}

// NewRoleStore creates a new RoleStore
func NewRoleStore(resolver Resolver, c *cache.Helper, ttl time.Duration, logger zerolog.Logger) *RoleStore {
	return &RoleStore{
		resolver: resolver,
		cache:    c,
		ttl:      ttl,
		logger:   logger.With().Str("component", "role_store").Logger(),
		subs:     make(map[uuid.UUID]map[int]chan models.RoleResolution),
	}
}

// Get returns the cached resolution, resolving on a miss
func (s *RoleStore) Get(ctx context.Context, identityID uuid.UUID) models.RoleResolution {
	if identityID == uuid.Nil {
		return models.NoIdentity()
	}

	var res models.RoleResolution
	err := s.cache.Get(ctx, identityID.String(), &res)
	if err == nil {
		return res
	}
	if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		s.logger.Warn().Err(err).Str("identity_id", identityID.String()).Msg("Role cache read failed")
	}
	return s.Refresh(ctx, identityID)
}

// Refresh re-resolves the identity, stores the result and notifies subscribers.
// Error resolutions are not cached so the next read retries.
func (s *RoleStore) Refresh(ctx context.Context, identityID uuid.UUID) models.RoleResolution {
	res := s.resolver.Resolve(ctx, identityID)
	if identityID == uuid.Nil {
		return res
	}

	switch {
	case res.Source == models.RoleSourceError:
	case !res.Authenticated():
		if err := s.cache.Delete(ctx, identityID.String()); err != nil {
			s.logger.Warn().Err(err).Str("identity_id", identityID.String()).Msg("Role cache delete failed")
		}
	default:
		if err := s.cache.Set(ctx, identityID.String(), res, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("identity_id", identityID.String()).Msg("Role cache write failed")
		}
	}

	s.notify(identityID, res)
	return res
}

// Invalidate drops the cached entry. Identities with live subscribers are
// re-resolved immediately so they observe the change.
func (s *RoleStore) Invalidate(ctx context.Context, identityID uuid.UUID) {
	if err := s.cache.Delete(ctx, identityID.String()); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", identityID.String()).Msg("Role cache delete failed")
	}
	if s.hasSubscribers(identityID) {
		s.Refresh(ctx, identityID)
	}
}

// Subscribe returns a channel of fresh resolutions for identityID and a cancel
// function. Slow subscribers miss intermediate values, never the channel close.
func (s *RoleStore) Subscribe(identityID uuid.UUID) (<-chan models.RoleResolution, func()) {
	ch := make(chan models.RoleResolution, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[identityID] == nil {
		s.subs[identityID] = make(map[int]chan models.RoleResolution)
	}
	s.subs[identityID][id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[identityID], id)
			if len(s.subs[identityID]) == 0 {
				delete(s.subs, identityID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (s *RoleStore) hasSubscribers(identityID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[identityID]) > 0
}

func (s *RoleStore) notify(identityID uuid.UUID, res models.RoleResolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[identityID] {
		// keep only the newest value in the single-slot buffer
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- res:
		default:
		}
	}
}

// Run invalidates entries on auth events until ctx is done
func (s *RoleStore) Run(ctx context.Context, events EventSubscriber) error {
	deliveries, err := events.Subscribe(ctx, realtime.TopicAuthEvents, "")
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			var ev models.AuthEvent
			if err := d.Decode(&ev); err != nil {
				s.logger.Warn().Err(err).Str("message_id", d.ID).Msg("Dropping malformed auth event")
				continue
			}
			s.logger.Debug().Str("identity_id", ev.IdentityID.String()).Str("event", string(ev.Type)).Msg("Auth event received")
			s.Invalidate(ctx, ev.IdentityID)
		}
	}()
	return nil
}

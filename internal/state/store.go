// Package state owns the in-memory state of the centralized backend. Every
// mutation runs under one lock, is applied to a copy of the snapshot and becomes
// visible only after the copy was committed.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/credential"
	"meypark-backend/internal/model"
	"meypark-backend/internal/persist"
)

// Committer persists whole snapshots.
type Committer interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Commit(ctx context.Context, snap *model.Snapshot) error
}

// Store is the authoritative state. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	snap      *model.Snapshot
	committer Committer
	hasher    credential.Hasher
	now       func() time.Time
	log       *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithHasher sets the operator password hasher.
func WithHasher(h credential.Hasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store holding the default snapshot. Call Load to restore committed state.
func New(c Committer, opts ...Option) *Store {
	s := &Store{
		committer: c,
		hasher:    credential.NewBcrypt(0),
		now:       func() time.Time { return time.Now().UTC() },
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = model.DefaultSnapshot(s.now())
	return s
}

// Load restores the committed snapshot. A missing or unreadable snapshot leaves the
// defaults in place; the store stays usable either way.
func (s *Store) Load(ctx context.Context) {
	snap, err := s.committer.Load(ctx)
	switch {
	case errors.Is(err, persist.ErrNoSnapshot):
		s.log.Info("no snapshot found, using default data")
		return
	case err != nil:
		s.log.Warn("could not load snapshot, using default data", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	derive(snap)
	s.snap = snap
	s.log.Info("snapshot loaded",
		zap.Int("companies", len(snap.Companies)),
		zap.Int("zones", len(snap.Zones)),
		zap.Int("operators", len(snap.Operators)),
		zap.Int("parking_meters", len(snap.ParkingMeters)))
}

// ReplaceMeters swaps the parking meter collection, used to seed geographic kiosks
// at startup. It is committed with the next mutation.
func (s *Store) ReplaceMeters(meters map[string]model.ParkingMeter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap.Clone()
	next.ParkingMeters = make(map[string]model.ParkingMeter, len(meters))
	for id, m := range meters {
		if m.ID == "" {
			m.ID = id
		}
		next.ParkingMeters[id] = m
	}
	s.snap = next
}

// Snapshot returns a client-safe copy of the full state.
func (s *Store) Snapshot() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Redacted()
}

// Stats returns the current counters.
func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Stats
}

// Company returns the company with id.
func (s *Store) Company(id string) (model.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.snap.Companies[id]
	if !ok {
		return model.Company{}, errCompanyNotFound
	}
	return c, nil
}

// Zone returns the zone with id.
func (s *Store) Zone(id string) (model.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.snap.Zones[id]
	if !ok {
		return model.Zone{}, errZoneNotFound
	}
	return z, nil
}

// Operator returns the operator with id, without its credential hash.
func (s *Store) Operator(id string) (model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.snap.Operators[id]
	if !ok {
		return model.Operator{}, errOperatorNotFound
	}
	return op.Public(), nil
}

// Session returns the active session with id.
func (s *Store) Session(id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.snap.ActiveSessions[id]
	if !ok {
		return model.Session{}, errSessionNotFound
	}
	return sess, nil
}

// Meter returns the parking meter with id.
func (s *Store) Meter(id string) (model.ParkingMeter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.snap.ParkingMeters[id]
	if !ok {
		return model.ParkingMeter{}, errMeterNotFound
	}
	return m, nil
}

// Meters returns a copy of all parking meters.
func (s *Store) Meters() map[string]model.ParkingMeter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone().ParkingMeters
}

// apply runs fn against a copy of the snapshot and commits it. On any error the
// store keeps its previous state.
func (s *Store) apply(ctx context.Context, fn func(next *model.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	if err := fn(next); err != nil {
		return err
	}
	derive(next)
	if err := s.committer.Commit(ctx, next); err != nil {
		s.log.Error("snapshot commit failed", zap.Error(err))
		return apperr.Internal(err)
	}
	s.snap = next
	return nil
}

// derive recomputes every count from the entity maps. Counts are never
// incremented in place, so they cannot drift from the data.
func derive(snap *model.Snapshot) {
	snap.Normalize()
	zones := make(map[string]int, len(snap.Companies))
	operators := make(map[string]int, len(snap.Companies))
	for _, z := range snap.Zones {
		zones[z.CompanyID]++
	}
	for _, op := range snap.Operators {
		operators[op.CompanyID]++
	}
	for id, c := range snap.Companies {
		c.Zones = zones[id]
		c.Operators = operators[id]
		snap.Companies[id] = c
	}

	snap.Stats.ActiveSessions = len(snap.ActiveSessions)
	snap.Stats.TotalCompanies = len(snap.Companies)
	snap.Stats.TotalZones = len(snap.Zones)
	snap.Stats.TotalOperators = len(snap.Operators)
}

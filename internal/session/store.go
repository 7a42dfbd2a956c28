package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wealthpath-backend/internal/engine"
)

// ErrNotFound is returned when a session id is unknown or has expired. The
// caller recovers by re-initializing.
var ErrNotFound = errors.New("simulation session not found")

// DefaultTTL matches the product's interactive-session lifetime.
const DefaultTTL = 30 * time.Minute

// Session owns one scenario's cached Monte Carlo state: the immutable draw
// table, the last policy parameters, and the last raw matrix. Recalcs
// against the same session are serialized by the per-session mutex so two
// recalculations can never interleave into one result.
type Session struct {
	mu sync.Mutex

	ID         string
	ScenarioID string
	CreatedAt  time.Time

	scenario *engine.Scenario
	draws    *engine.DrawTable
	params   engine.PolicyParams
	result   *engine.AggregatedResult
}

// Store holds live sessions keyed by opaque id. There are no process-wide
// singletons: callers pass the store by handle.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store with the given idle TTL (DefaultTTL if zero).
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create generates the draw table once, runs the full Monte Carlo
// orchestration, aggregates, and caches everything under a fresh session
// id. The scenario must already be normalized-ready; validation errors
// surface before any simulation runs.
func (s *Store) Create(ctx context.Context, scenarioID string, sc *engine.Scenario, iterations int, seed uint64, params engine.PolicyParams) (string, *engine.AggregatedResult, error) {
	normalized, err := sc.Normalize()
	if err != nil {
		return "", nil, err
	}
	if params.Percentile == 0 {
		params.Percentile = 50
	}

	start := time.Now()
	draws, err := engine.GenerateDraws(normalized, iterations, seed)
	if err != nil {
		return "", nil, err
	}
	matrix, err := engine.Run(ctx, normalized, params, draws)
	if err != nil {
		return "", nil, err
	}
	result := engine.Aggregate(matrix, normalized, params)

	sess := &Session{
		ID:         uuid.New().String(),
		ScenarioID: scenarioID,
		CreatedAt:  s.now(),
		scenario:   normalized,
		draws:      draws,
		params:     params,
		result:     result,
	}

	s.mu.Lock()
	s.purgeExpiredLocked()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Info().
		Str("session_id", sess.ID).
		Str("scenario_id", scenarioID).
		Int("iterations", iterations).
		Dur("elapsed", time.Since(start)).
		Msg("Simulation session created")
	return sess.ID, result, nil
}

// Recalc merges the partial overrides over the session's last parameters
// and re-runs the path simulator against the cached draws. The RNG is
// never re-invoked here; that is the performance contract that keeps
// recalculation interactive.
func (s *Store) Recalc(ctx context.Context, id string, overrides engine.PolicyOverrides) (*engine.AggregatedResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	params := sess.params.Merge(overrides)
	if params == sess.params && sess.result != nil {
		return sess.result, nil
	}

	start := time.Now()
	matrix, err := engine.Run(ctx, sess.scenario, params, sess.draws)
	if err != nil {
		return nil, err
	}
	result := engine.Aggregate(matrix, sess.scenario, params)
	sess.params = params
	sess.result = result

	log.Debug().
		Str("session_id", id).
		Dur("elapsed", time.Since(start)).
		Msg("Simulation session recalculated")
	return result, nil
}

// Delete tears one session down.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// InvalidateScenario drops every session for a scenario. Called when the
// scenario is edited or removed, forcing clients to re-initialize.
func (s *Store) InvalidateScenario(scenarioID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.ScenarioID == scenarioID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of live sessions (expired ones included until the
// next purge).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Store) purgeExpiredLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

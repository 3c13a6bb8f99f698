package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/metrics"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Config configures a Store.
type Config struct {
	Catalog  *catalog.Catalog
	Loader   surface.Loader
	Renderer popup.Renderer
	Metrics  *metrics.Collector
	Bus      *EventBus
	Logger   *slog.Logger
	TTL      time.Duration
}

// Store holds live sessions.
type Store struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{cfg: cfg, sessions: make(map[string]*Session)}
}

// Bus returns the store's event bus, which may be nil.
func (st *Store) Bus() *EventBus { return st.cfg.Bus }

// Create starts a session with the catalog's default layers and returns it
// with the commands that register every source and layer on the page.
func (st *Store) Create() (*Session, []surface.Command, error) {
	id := uuid.NewString()
	s, cmds, err := newSession(id, st.cfg.Catalog, st.cfg.Loader, st.cfg.Renderer, st.cfg.Metrics, st.cfg.Bus, st.cfg.Logger.With("session", id))
	if err != nil {
		return nil, nil, err
	}

	st.mu.Lock()
	st.sessions[id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.cfg.Metrics.SetSessions(n)
	st.cfg.Logger.Debug("session created", "session", id, "commands", len(cmds))
	return s, cmds, nil
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete drops a session. Deleting an unknown id is not an error.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()
	st.cfg.Metrics.SetSessions(n)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle since before now minus the TTL and returns how
// many were dropped.
func (st *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-st.cfg.TTL)

	st.mu.Lock()
	var dropped int
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			dropped++
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if dropped > 0 {
		st.cfg.Metrics.SetSessions(n)
		st.cfg.Logger.Info("expired idle sessions", "dropped", dropped, "active", n)
	}
	return dropped
}

// Run sweeps idle sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}

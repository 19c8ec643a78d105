// Package session persists per-client wizard state for the HTTP API.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"twaforge/internal/repo"
	"twaforge/internal/wizard"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when an action is already running on the session.
	ErrBusy = wizard.ErrBusy
)

type Store struct {
	Repo repo.Repo

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewStore(r repo.Repo) *Store {
	return &Store{Repo: r, inflight: map[string]struct{}{}}
}

// Create stores st under a new id.
func (s *Store) Create(ctx context.Context, st wizard.State) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	if err := s.Repo.InsertSession(ctx, id, data); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Get returns the stored state. A busy flag left behind by a call that is no
// longer running is cleared.
func (s *Store) Get(ctx context.Context, id string) (wizard.State, error) {
	before := s.running(id)
	st, err := s.load(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	if st.Busy && !before && !s.running(id) {
		st = wizard.Abandon(st)
	}
	return st, nil
}

func (s *Store) load(ctx context.Context, id string) (wizard.State, error) {
	data, err := s.Repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return wizard.State{}, ErrNotFound
		}
		return wizard.State{}, err
	}
	var st wizard.State
	if err := json.Unmarshal(data, &st); err != nil {
		return wizard.State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return st, nil
}

func (s *Store) save(ctx context.Context, id string, st wizard.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateSession(ctx, id, data); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Store) running(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

func (s *Store) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// Do runs fn on the stored state and saves what it returns. Only one Do runs
// per session at a time; a concurrent call gets ErrBusy. When fn fails the
// stored state is left as it was.
func (s *Store) Do(ctx context.Context, id string, fn func(wizard.State) (wizard.State, error)) (wizard.State, error) {
	return s.DoStaged(ctx, id, func(st wizard.State, _ wizard.Checkpoint) (wizard.State, error) {
		return fn(st)
	})
}

// DoStaged is Do for long actions. fn may call the checkpoint to store an
// intermediate state that readers see until fn returns. If fn then fails,
// the state from before the action is stored again.
func (s *Store) DoStaged(ctx context.Context, id string, fn func(wizard.State, wizard.Checkpoint) (wizard.State, error)) (wizard.State, error) {
	if !s.acquire(id) {
		return wizard.State{}, ErrBusy
	}
	defer s.release(id)
	st, err := s.load(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	// Nothing else runs on this session, so a stored busy flag is stale.
	st = wizard.Abandon(st)
	staged := false
	next, err := fn(st, func(mid wizard.State) error {
		if err := s.save(ctx, id, mid); err != nil {
			return err
		}
		staged = true
		return nil
	})
	if err != nil {
		if staged {
			if rerr := s.save(context.WithoutCancel(ctx), id, st); rerr != nil {
				return st, errors.Join(err, rerr)
			}
		}
		return st, err
	}
	if err := s.save(context.WithoutCancel(ctx), id, next); err != nil {
		return st, err
	}
	return next, nil
}

// Prune deletes sessions not touched within maxAge.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.Repo.DeleteSessionsBefore(ctx, time.Now().Add(-maxAge))
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

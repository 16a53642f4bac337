// Package accounts keeps the dashboard's social accounts and which one is
// active, saving every change through a Persister.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"postboard/models"
)

var (
	ErrNotFound = errors.New("account not found")
	ErrInvalid  = errors.New("invalid account")
)

// State is what gets persisted
type State struct {
	Accounts []models.Account `json:"accounts"`
	ActiveID string           `json:"activeId"`
}

func (s State) clone() State {
	return State{
		Accounts: append([]models.Account(nil), s.Accounts...),
		ActiveID: s.ActiveID,
	}
}

// Persister loads and saves the account state. Load reports false when
// nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (State, bool, error)
	Save(ctx context.Context, state State) error
}

type Store struct {
	mu        sync.RWMutex
	persister Persister
	defaults  []models.Account
	state     State
}

func defaultState(defaults []models.Account) State {
	state := State{Accounts: append([]models.Account(nil), defaults...)}
	if len(defaults) > 0 {
		state.ActiveID = defaults[0].ID
	}
	return state
}

// Open loads the saved state, falling back to defaults when there is none
func Open(ctx context.Context, persister Persister, defaults []models.Account) (*Store, error) {
	state, ok, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if !ok {
		log.WithFields(log.Fields{"count": len(defaults)}).Info("No saved accounts, using defaults")
		state = defaultState(defaults)
	}
	if state.ActiveID != "" && !lo.ContainsBy(state.Accounts, func(a models.Account) bool { return a.ID == state.ActiveID }) {
		state.ActiveID = ""
	}
	if state.ActiveID == "" && len(state.Accounts) > 0 {
		state.ActiveID = state.Accounts[0].ID
	}

	return &Store{
		persister: persister,
		defaults:  append([]models.Account(nil), defaults...),
		state:     state,
	}, nil
}

func (s *Store) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Account(nil), s.state.Accounts...)
}

func (s *Store) Get(id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := lo.Find(s.state.Accounts, func(a models.Account) bool { return a.ID == id })
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// Active returns the active account; false when there are no accounts
func (s *Store) Active() (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.state.Accounts, func(a models.Account) bool { return a.ID == s.state.ActiveID })
}

// commit saves next and only then makes it current. Caller holds the lock.
func (s *Store) commit(ctx context.Context, next State) error {
	if err := s.persister.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	s.state = next
	return nil
}

func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !lo.ContainsBy(s.state.Accounts, func(a models.Account) bool { return a.ID == id }) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := s.state.clone()
	next.ActiveID = id
	return s.commit(ctx, next)
}

// Add stores a new account under a generated id
func (s *Store) Add(ctx context.Context, a models.Account) (models.Account, error) {
	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" {
		return models.Account{}, fmt.Errorf("%w: username is required", ErrInvalid)
	}
	if a.DisplayName == "" {
		a.DisplayName = a.Username
	}
	a.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	next.Accounts = append(next.Accounts, a)
	if next.ActiveID == "" {
		next.ActiveID = a.ID
	}
	if err := s.commit(ctx, next); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// Update replaces the account with the same id. The active account is read
// from the list, so it picks up the change too.
func (s *Store) Update(ctx context.Context, a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, i, ok := lo.FindIndexOf(s.state.Accounts, func(x models.Account) bool { return x.ID == a.ID })
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalid)
	}
	next := s.state.clone()
	next.Accounts[i] = a
	return s.commit(ctx, next)
}

// Delete removes an account. Deleting the active one activates the first
// remaining account, or none.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !lo.ContainsBy(s.state.Accounts, func(a models.Account) bool { return a.ID == id }) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := s.state.clone()
	next.Accounts = lo.Reject(next.Accounts, func(a models.Account, _ int) bool { return a.ID == id })
	if next.ActiveID == id {
		next.ActiveID = ""
		if len(next.Accounts) > 0 {
			next.ActiveID = next.Accounts[0].ID
		}
	}
	return s.commit(ctx, next)
}

// Reset restores the configured default accounts
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, defaultState(s.defaults))
}

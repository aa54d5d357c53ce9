// Package memory is an in-process State Store used in development mode and
// tests. It honours the same contract as the PostgreSQL store: optimistic
// versions, unique UIDs and all-or-nothing transactions.
package memory

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

// FaultFunc is consulted before every write; a non-nil error aborts the write.
// Operation names look like "student.delete_by_uid".
type FaultFunc func(op string) error

type state struct {
	uids          map[string]*models.UidRecord
	students      map[string]map[string]*models.Student
	documents     map[string]map[models.DocumentKind]*models.Document
	history       []*models.StatusHistory
	nextHistoryID uint
}

func newState() *state {
	return &state{
		uids:          make(map[string]*models.UidRecord),
		students:      make(map[string]map[string]*models.Student),
		documents:     make(map[string]map[models.DocumentKind]*models.Document),
		nextHistoryID: 1,
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, u := range s.uids {
		c.uids[k] = u.Clone()
	}
	for uid, byID := range s.students {
		m := make(map[string]*models.Student, len(byID))
		for id, st := range byID {
			m[id] = st.Clone()
		}
		c.students[uid] = m
	}
	for uid, byKind := range s.documents {
		m := make(map[models.DocumentKind]*models.Document, len(byKind))
		for kind, d := range byKind {
			m[kind] = d.Clone()
		}
		c.documents[uid] = m
	}
	c.history = make([]*models.StatusHistory, len(s.history))
	for i, h := range s.history {
		cp := *h
		c.history[i] = &cp
	}
	c.nextHistoryID = s.nextHistoryID
	return c
}

type store struct {
	// txMu serialises writers, both single writes and whole transactions.
	txMu sync.Mutex
	// mu guards st for readers.
	mu sync.RWMutex
	st *state

	faultMu sync.RWMutex
	fault   FaultFunc

	users repositories.UserRepository
}

// Repository implements repositories.Repository over process memory.
type Repository struct {
	store *store
	// tx is the working copy while inside WithTransaction.
	tx *state
}

// NewRepository creates an empty store. users backs the User() directory.
func NewRepository(users repositories.UserRepository) *Repository {
	if users == nil {
		users = NewUserDirectory()
	}
	return &Repository{store: &store{st: newState(), users: users}}
}

// InjectFault installs f for subsequent writes; nil removes it.
func (r *Repository) InjectFault(f FaultFunc) {
	r.store.faultMu.Lock()
	defer r.store.faultMu.Unlock()
	r.store.fault = f
}

func (r *Repository) checkFault(op string) error {
	r.store.faultMu.RLock()
	f := r.store.fault
	r.store.faultMu.RUnlock()
	if f == nil {
		return nil
	}
	return f(op)
}

func (r *Repository) read(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.st)
}

// write runs fn against live state. fn must validate before it mutates so a
// failed single write leaves nothing behind.
func (r *Repository) write(op string, fn func(st *state) error) error {
	if err := r.checkFault(op); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

func (r *Repository) Uid() repositories.UidRepository { return &uidRepository{r} }

func (r *Repository) Student() repositories.StudentRepository { return &studentRepository{r} }

func (r *Repository) Document() repositories.DocumentRepository { return &documentRepository{r} }

func (r *Repository) History() repositories.StatusHistoryRepository { return &historyRepository{r} }

func (r *Repository) User() repositories.UserRepository { return r.store.users }

// WithTransaction runs fn against a private copy of the state and publishes
// the copy only when fn succeeds.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.RLock()
	working := r.store.st.clone()
	r.store.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fn(&Repository{store: r.store, tx: working}); err != nil {
		return err
	}

	r.store.mu.Lock()
	r.store.st = working
	r.store.mu.Unlock()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *Repository) Close() error { return nil }

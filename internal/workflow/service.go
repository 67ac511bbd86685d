// Package workflow implements the asset pool and the purchase, transfer,
// assignment and expenditure state machines. Every mutating operation runs
// in a single transaction, so a workflow record and the asset changes it
// implies commit together or not at all.
package workflow

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// IDGen generates public record references.
type IDGen interface {
	New() (string, error)
}

type ulidGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newULIDGen() *ulidGen {
	return &ulidGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ulidGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Service runs workflow operations against the database.
type Service struct {
	db    *sql.DB
	clock Clock
	ids   IDGen
	locks *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGen overrides the reference generator.
func WithIDGen(g IDGen) Option {
	return func(s *Service) { s.ids = g }
}

// NewService creates a Service.
func NewService(database *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:    database,
		clock: realClock{},
		ids:   newULIDGen(),
		locks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns the current time in UTC; every stored timestamp comes from here.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) newRef() (string, error) {
	ref, err := s.ids.New()
	if err != nil {
		return "", fmt.Errorf("generating reference: %w", err)
	}
	return ref, nil
}

// keyedMutex serializes allocation per (base, equipment type). The lock is
// taken before the transaction begins so a waiting caller never holds a
// connection.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[poolKey]*refMutex
}

type poolKey struct {
	baseID          int64
	equipmentTypeID int64
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[poolKey]*refMutex)}
}

// Lock blocks until the key is free and returns the unlock function.
func (k *keyedMutex) Lock(baseID, equipmentTypeID int64) func() {
	key := poolKey{baseID, equipmentTypeID}

	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func requireRole(actor model.Actor, action string, roles ...string) error {
	if !actor.HasRole(roles...) {
		return apperr.AccessDenied("role %q may not %s", actor.Role, action)
	}
	return nil
}

func requireBase(actor model.Actor, baseID int64) error {
	if !actor.CanAccessBase(baseID) {
		return apperr.AccessDenied("base %d is outside your scope", baseID)
	}
	return nil
}

func loadBase(ctx context.Context, q db.DBTX, id int64) (*model.Base, error) {
	b, err := store.GetBase(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.NotFound("base", id)
	}
	return b, nil
}

func loadEquipmentType(ctx context.Context, q db.DBTX, id int64) (*model.EquipmentType, error) {
	et, err := store.GetEquipmentType(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if et == nil {
		return nil, apperr.NotFound("equipment type", id)
	}
	return et, nil
}

func loadAsset(ctx context.Context, q db.DBTX, id int64) (*model.Asset, error) {
	a, err := store.GetAsset(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("asset", id)
	}
	return a, nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

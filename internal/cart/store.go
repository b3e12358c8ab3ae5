package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

// ErrPersist wraps a failed write of a committed cart.
var ErrPersist = errors.New("cart: persist failed")

// Observer receives every committed cart snapshot.
type Observer func(Cart)

type Option func(*Store)

// WithObserver registers fn to be called after each committed command.
func WithObserver(fn Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, fn)
	}
}

// WithLogFields attaches fields (e.g. a session id) to the store's log lines.
func WithLogFields(fields map[string]interface{}) Option {
	return func(s *Store) {
		s.log = logger.WithContext(fields)
	}
}

// Store is the single owner of a Cart. All commands are serialized.
type Store struct {
	mu        sync.Mutex
	state     Cart
	storage   Storage
	observers []Observer
	log       *logger.Logger
}

// NewStore hydrates a store from storage. Missing or unreadable data yields
// the empty cart.
func NewStore(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		state:   Empty(),
		storage: storage,
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) Cart {
	raw, err := s.storage.Load(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ErrNotStored) {
			s.log.Warn("Failed to read stored cart, starting empty", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return Empty()
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn("Stored cart is malformed, starting empty", map[string]interface{}{
			"error": err.Error(),
			"bytes": len(raw),
		})
		return Empty()
	}

	c := doc.cart()
	s.log.Debug("Cart hydrated from storage", map[string]interface{}{
		"items": len(c.Items),
	})
	return c
}

// State returns a copy of the current cart.
func (s *Store) State() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies cmd. Commands that do not match anything leave the state
// untouched and report StatusNotFound or StatusInvalid. A committed change is
// written to storage before Dispatch returns; if that write fails the change
// stays committed in memory and the error wraps ErrPersist.
func (s *Store) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	s.mu.Lock()
	next, status := cmd.apply(s.state.clone())
	if status != StatusOK {
		snapshot := s.state.clone()
		s.mu.Unlock()
		s.log.Debug("Cart command had no effect", map[string]interface{}{
			"command": cmd.Name(),
			"status":  status,
		})
		return Result{Status: status, Cart: snapshot}, nil
	}

	s.state = next
	var persistErr error
	if cmd.persistent() {
		persistErr = s.persist(ctx)
	}
	snapshot := s.state.clone()
	observers := s.observers
	s.mu.Unlock()

	s.log.Debug("Cart command applied", map[string]interface{}{
		"command": cmd.Name(),
		"items":   len(snapshot.Items),
	})

	for _, fn := range observers {
		fn(snapshot.clone())
	}

	return Result{Status: StatusOK, Cart: snapshot}, persistErr
}

func (s *Store) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.state.document())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.storage.Save(ctx, StorageKey, raw); err != nil {
		s.log.Error("Failed to persist cart", err, map[string]interface{}{
			"items": len(s.state.Items),
		})
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

package access

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests. It reproduces the two
// properties the backing database provides: a unique constraint on the
// payment reference and a set-once used timestamp.
type MemoryStore struct {
	mu      sync.Mutex
	byToken map[string]*Record
	byRef   map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byToken: make(map[string]*Record),
		byRef:   make(map[string]*Record),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byRef[rec.PaymentRef]; ok {
		return ErrConflict
	}
	r := rec
	s.byToken[r.Token] = &r
	s.byRef[r.PaymentRef] = &r
	return nil
}

func (s *MemoryStore) FindByToken(_ context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byToken[token]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

func (s *MemoryStore) FindByPaymentRef(_ context.Context, ref string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byRef[ref]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byToken[token]
	if !ok {
		return ErrNotFound
	}
	if r.UsedAt == nil {
		t := at
		r.UsedAt = &t
	}
	return nil
}

// Package history keeps the walking history of users: the loops they were
// given and how often they covered each street segment.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"walk-loop-server/routing"
)

// ErrNoUser is returned when a history operation is called without a user.
var ErrNoUser = errors.New("user is required")

// Entry is one recorded loop.
type Entry struct {
	routing.Loop
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists walking history.
type Store interface {
	// Frequency returns the segment traversal counts of user. It is empty,
	// not nil, for unknown users.
	Frequency(ctx context.Context, user string) (routing.Frequency, error)

	// RecordLoop adds loop to the history of user. Degenerate loops are
	// ignored.
	RecordLoop(ctx context.Context, user string, loop *routing.Loop) error

	// Recent returns up to limit loops of user, newest first.
	Recent(ctx context.Context, user string, limit int) ([]Entry, error)

	Close() error
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	freq  map[string]routing.Frequency
	loops map[string][]Entry
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		freq:  make(map[string]routing.Frequency),
		loops: make(map[string][]Entry),
		now:   time.Now,
	}
}

func (s *MemoryStore) Frequency(_ context.Context, user string) (routing.Frequency, error) {
	if user == "" {
		return nil, ErrNoUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(routing.Frequency, len(s.freq[user]))
	for seg, n := range s.freq[user] {
		out[seg] = n
	}
	return out, nil
}

func (s *MemoryStore) RecordLoop(_ context.Context, user string, loop *routing.Loop) error {
	if user == "" {
		return ErrNoUser
	}
	if loop == nil || loop.Degenerate {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.freq[user]
	if !ok {
		f = make(routing.Frequency)
		s.freq[user] = f
	}
	f.AddRoute(loop.Nodes)

	entry := Entry{Loop: *loop, User: user, CreatedAt: s.now()}
	entry.Nodes = append([]int64(nil), loop.Nodes...)
	s.loops[user] = append(s.loops[user], entry)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, user string, limit int) ([]Entry, error) {
	if user == "" {
		return nil, ErrNoUser
	}
	if limit <= 0 {
		return []Entry{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.loops[user]
	out := make([]Entry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

package fsm

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps conversation state in-process. Active flows are
// lost on restart; set REDIS_ADDR to keep them.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]*State)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	return &State{Tag: st.Tag, Payload: clonePayload(st.Payload), UpdatedAt: st.UpdatedAt}, nil
}

func (s *MemoryStore) Set(_ context.Context, userID int64, tag Tag, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload == nil {
		payload = Payload{}
	}
	s.states[userID] = &State{Tag: tag, Payload: clonePayload(payload), UpdatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) UpdatePayload(_ context.Context, userID int64, patch Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return nil
	}
	for k, v := range patch {
		st.Payload[k] = v
	}
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

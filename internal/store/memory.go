package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"retail-sim/internal/core"
)

// MemoryStore keeps sessions and weekly snapshots in process. Every value crossing the
// boundary is cloned so callers never alias stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.GameSession
	weeks    map[string]map[int]*core.WeeklyState
	byID     map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]*core.GameSession{},
		weeks:    map[string]map[int]*core.WeeklyState{},
		byID:     map[string]string{},
	}
}

var _ core.StateStore = (*MemoryStore)(nil)

func (m *MemoryStore) Get(ctx context.Context, sessionID string, week int) (*core.WeeklyState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.weeks[sessionID][week]
	if !ok {
		return nil, fmt.Errorf("session %s week %d: %w", sessionID, week, core.ErrWeekNotFound)
	}
	return st.Clone(), nil
}

func (m *MemoryStore) GetLatest(ctx context.Context, sessionID string) (*core.WeeklyState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *core.WeeklyState
	for _, st := range m.weeks[sessionID] {
		if latest == nil || st.WeekNumber > latest.WeekNumber {
			latest = st
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrWeekNotFound)
	}
	return latest.Clone(), nil
}

func (m *MemoryStore) GetAll(ctx context.Context, sessionID string) ([]*core.WeeklyState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	out := make([]*core.WeeklyState, 0, len(m.weeks[sessionID]))
	for _, st := range m.weeks[sessionID] {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, st *core.WeeklyState) (*core.WeeklyState, error) {
	if err := checkStates(st); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putLocked(st); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

func (m *MemoryStore) putLocked(st *core.WeeklyState) error {
	weeks := m.weeks[st.SessionID]
	if weeks == nil {
		weeks = map[int]*core.WeeklyState{}
		m.weeks[st.SessionID] = weeks
	}
	if _, exists := weeks[st.WeekNumber]; exists {
		return fmt.Errorf("session %s week %d: %w", st.SessionID, st.WeekNumber, core.ErrDuplicateWeek)
	}
	weeks[st.WeekNumber] = st.Clone()
	m.byID[st.ID] = st.SessionID
	return nil
}

// Update patches a draft. Committed weeks are immutable.
func (m *MemoryStore) Update(ctx context.Context, id string, patch core.StatePatch) (*core.WeeklyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, err := m.byIDLocked(id)
	if err != nil {
		return nil, err
	}
	if cur.IsCommitted {
		return nil, fmt.Errorf("state %s: %w", id, core.ErrWeekCommitted)
	}
	next := core.ApplyPatch(cur, patch)
	if err := next.CheckIntegrity(); err != nil {
		return nil, err
	}
	m.weeks[next.SessionID][next.WeekNumber] = next
	return next.Clone(), nil
}

func (m *MemoryStore) byIDLocked(id string) (*core.WeeklyState, error) {
	sessionID, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", id, core.ErrWeekNotFound)
	}
	for _, st := range m.weeks[sessionID] {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, fmt.Errorf("state %s: %w", id, core.ErrWeekNotFound)
}

// CommitWeek applies all three writes or none of them.
func (m *MemoryStore) CommitWeek(ctx context.Context, committed, next *core.WeeklyState, session *core.GameSession) error {
	if err := checkStates(committed, next); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.weeks[committed.SessionID][committed.WeekNumber]
	if !ok {
		return fmt.Errorf("session %s week %d: %w", committed.SessionID, committed.WeekNumber, core.ErrWeekNotFound)
	}
	if cur.IsCommitted {
		return fmt.Errorf("session %s week %d: %w", committed.SessionID, committed.WeekNumber, core.ErrWeekCommitted)
	}
	if next != nil {
		if _, exists := m.weeks[next.SessionID][next.WeekNumber]; exists {
			return fmt.Errorf("session %s week %d: %w", next.SessionID, next.WeekNumber, core.ErrDuplicateWeek)
		}
	}
	if _, ok := m.sessions[session.ID]; !ok {
		return fmt.Errorf("session %s: %w", session.ID, core.ErrSessionNotFound)
	}

	m.weeks[committed.SessionID][committed.WeekNumber] = committed.Clone()
	m.byID[committed.ID] = committed.SessionID
	if next != nil {
		if err := m.putLocked(next); err != nil {
			return err
		}
	}
	s := *session
	m.sessions[session.ID] = &s
	return nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, s *core.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*core.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]*core.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.GameSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

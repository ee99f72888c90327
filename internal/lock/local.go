package lock

import (
	"context"
	"fmt"
	"sync"

	"retail-sim/internal/core"
)

// LocalLocker serializes commits within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

var _ core.SessionLocker = (*LocalLocker)(nil)

// TryLock never waits: a session already being committed yields ErrCommitInProgress.
func (l *LocalLocker) TryLock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[sessionID]; busy {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrCommitInProgress)
	}
	l.held[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, sessionID)
			l.mu.Unlock()
		})
	}, nil
}

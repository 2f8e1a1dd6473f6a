package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Locker, used in tests and single-instance
// deployments without Redis.
type Memory struct {
	mu   sync.Mutex
	held map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.held[key]; ok && m.now().Before(e.expires) {
		return "", false, nil
	}
	token := uuid.New().String()
	m.held[key] = memoryEntry{token: token, expires: m.now().Add(ttl)}
	return token, true, nil
}

func (m *Memory) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.held[key]; ok && e.token == token {
		delete(m.held, key)
	}
	return nil
}

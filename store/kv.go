package store

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by KV.Get when nothing is stored under a key.
var ErrNotFound = errors.New("key not found")

// KV is a durable string-keyed blob store.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Backup is a previous value of a key, kept by stores that support recovery.
type Backup struct {
	Name string
	Data []byte
}

// Recoverer is implemented by stores that keep older values around and can
// move a corrupt value aside.
type Recoverer interface {
	// Backups returns earlier values of key, newest first.
	Backups(key string) ([]Backup, error)
	// Quarantine moves the current value of key out of the way and returns
	// the name it was moved to ("" when there was nothing to move).
	Quarantine(key string) (string, error)
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

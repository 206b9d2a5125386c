package storage

import (
	"encoding/json"
	"sync"
)

// Memory is a RecordStore held entirely in process, used by tests and
// anywhere durability is not wanted.
type Memory struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage

	// FailWrites makes WriteRecord return this error when set.
	FailWrites error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]json.RawMessage)}
}

func (m *Memory) ReadRecord(key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return cp, true, nil
}

func (m *Memory) WriteRecord(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.docs[key] = data
	return nil
}

// Seed stores a raw document directly, bypassing marshalling.
func (m *Memory) Seed(key string, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = json.RawMessage(raw)
}

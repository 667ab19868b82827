package adapters

import (
	"strings"
	"sync"

	"letraz-harvester/internal/logging/types"
)

// MemoryAdapter keeps entries in memory so tests can assert on what was logged
type MemoryAdapter struct {
	name    string
	mu      sync.Mutex
	entries []types.LogEntry
}

// NewMemoryAdapter creates an empty memory adapter
func NewMemoryAdapter(name string) *MemoryAdapter {
	return &MemoryAdapter{name: name}
}

func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *MemoryAdapter) Close() error  { return nil }
func (a *MemoryAdapter) Health() error { return nil }
func (a *MemoryAdapter) Name() string  { return a.name }

// Entries returns a copy of everything written so far
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Contains reports whether any entry at level has a message containing substr
func (a *MemoryAdapter) Contains(level types.LogLevel, substr string) bool {
	for _, e := range a.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Reset drops all captured entries
func (a *MemoryAdapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

package journal

import (
	"sync"

	"qclctl/internal/protocol"
)

// DefaultMemorySize is the number of entries a Memory journal keeps.
const DefaultMemorySize = 256

// Memory is a fixed size ring of the latest exchanges.
type Memory struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	full bool
	seq  uint64
}

var _ Journal = (*Memory)(nil)

// NewMemory returns a ring holding the last size entries.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{buf: make([]Entry, size)}
}

func (m *Memory) Record(ex protocol.Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e := FromExchange(ex)
	e.Seq = m.seq
	m.buf[m.next] = e
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
}

// List returns up to limit of the newest entries, oldest first. limit <= 0 returns all.
func (m *Memory) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	start := m.next - limit
	if start < 0 {
		start += len(m.buf)
	}
	for i := 0; i < limit; i++ {
		out = append(out, m.buf[(start+i)%len(m.buf)])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

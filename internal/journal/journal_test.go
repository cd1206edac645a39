package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"qclctl/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(i int) protocol.Exchange {
	return protocol.Exchange{
		ID:          fmt.Sprintf("ex-%d", i),
		Transaction: fmt.Sprintf("tx-%d", i),
		Time:        time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC),
		Operation:   protocol.Wavenumber,
		Direction:   "get",
		Command:     ":laser:set?",
		Reply:       fmt.Sprintf("%d.00cm-1", 1000+i),
		Duration:    3 * time.Millisecond,
	}
}

func replies(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Reply)
	}
	return out
}

func TestMemoryRing(t *testing.T) {
	m := NewMemory(3)

	list, err := m.List(0)
	require.NoError(t, err)
	assert.Empty(t, list)

	m.Record(exchange(1))
	m.Record(exchange(2))
	list, _ = m.List(0)
	assert.Equal(t, []string{"1001.00cm-1", "1002.00cm-1"}, replies(list))

	m.Record(exchange(3))
	m.Record(exchange(4))
	m.Record(exchange(5))
	list, _ = m.List(0)
	assert.Equal(t, []string{"1003.00cm-1", "1004.00cm-1", "1005.00cm-1"}, replies(list))
	assert.Equal(t, uint64(5), list[2].Seq)

	list, _ = m.List(2)
	assert.Equal(t, []string{"1004.00cm-1", "1005.00cm-1"}, replies(list))
	assert.NoError(t, m.Close())
}

func TestStorePersistsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "exchanges.db")

	s, err := OpenStore(path)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		s.Record(exchange(i))
	}
	failed := exchange(5)
	failed.Reply, failed.Err = "", "no reply within 1s"
	s.Record(failed)
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(1), all[0].Seq)
	assert.Equal(t, "ex-1", all[0].ID)
	assert.True(t, all[0].Time.Equal(exchange(1).Time))
	assert.Equal(t, 3*time.Millisecond, all[0].Duration)
	assert.Equal(t, "no reply within 1s", all[4].Err)

	last, err := s.List(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ex-4", "ex-5"}, []string{last[0].ID, last[1].ID})
}

func TestStorePrunesOldEntries(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "j.db"), WithMaxEntries(3))
	require.NoError(t, err)
	defer s.Close()

	for i := 1; i <= 7; i++ {
		s.Record(exchange(i))
	}
	all, err := s.List(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1005.00cm-1", "1006.00cm-1", "1007.00cm-1"}, replies(all))
}

func TestLines(t *testing.T) {
	set := exchange(1)
	set.Direction, set.Command, set.Reply = "set", ":laser:set 1100.00", ""
	lines := Lines([]Entry{FromExchange(set), FromExchange(exchange(2))})
	assert.Equal(t, []string{":laser:set 1100.00", ":laser:set?", "1002.00cm-1"}, lines)
}

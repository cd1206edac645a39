package qcl_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"qclctl/internal/device"
	"qclctl/pkg/qcl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyCounter struct {
	mu      sync.Mutex
	replies []string
}

func (r *replyCounter) Record(ex qcl.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, ex.Reply)
}

func TestCommandLogAndLoggerFromOutside(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	cmdLog := qcl.NewCommandLog(0)
	counter := &replyCounter{}

	c := qcl.New(device.NewLoopDevice(device.NewFirmware()),
		qcl.WithLogger(qcl.NewLogger(&out, qcl.DebugLevel, false)),
		qcl.WithRecorder(cmdLog),
		qcl.WithRecorder(counter),
	)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.SetPulseRate(ctx, 20)
	require.NoError(t, err)
	_, err = c.Wavenumber(ctx)
	require.NoError(t, err)

	entries, err := cmdLog.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	lines := qcl.Transcript(entries)
	assert.Equal(t, []string{":pulse:freq 20.0", ":pulse:freq?", "20.0kHz", ":laser:set?", "1080.00cm-1"}, lines)

	counter.mu.Lock()
	assert.Len(t, counter.replies, 3)
	counter.mu.Unlock()

	assert.Contains(t, out.String(), `"command":":pulse:freq?"`)
}

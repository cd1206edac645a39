// Package journal keeps a record of the wire exchanges between the host and
// the laser controller, in memory and optionally persisted in BoltDB.
package journal

import (
	"fmt"
	"time"

	"qclctl/internal/protocol"

	"github.com/fxamacker/cbor/v2"
)

// Entry is one recorded exchange. CBOR encoding uses integer keys.
type Entry struct {
	Seq         uint64        `cbor:"1,keyasint" json:"seq"`
	ID          string        `cbor:"2,keyasint" json:"id"`
	Transaction string        `cbor:"3,keyasint" json:"transaction"`
	Time        time.Time     `cbor:"4,keyasint" json:"time"`
	Operation   string        `cbor:"5,keyasint" json:"operation"`
	Direction   string        `cbor:"6,keyasint" json:"direction"`
	Command     string        `cbor:"7,keyasint" json:"command"`
	Reply       string        `cbor:"8,keyasint,omitempty" json:"reply,omitempty"`
	Err         string        `cbor:"9,keyasint,omitempty" json:"error,omitempty"`
	Duration    time.Duration `cbor:"10,keyasint" json:"duration_ns"`
}

// FromExchange converts an engine exchange into a journal entry.
func FromExchange(ex protocol.Exchange) Entry {
	return Entry{
		ID:          ex.ID,
		Transaction: ex.Transaction,
		Time:        ex.Time,
		Operation:   ex.Operation,
		Direction:   ex.Direction,
		Command:     ex.Command,
		Reply:       ex.Reply,
		Err:         ex.Err,
		Duration:    ex.Duration,
	}
}

// Lines renders entries as the plain command and reply transcript, one wire line each.
func Lines(entries []Entry) []string {
	lines := make([]string, 0, 2*len(entries))
	for _, e := range entries {
		lines = append(lines, e.Command)
		if e.Reply != "" {
			lines = append(lines, e.Reply)
		}
	}
	return lines
}

// Journal records exchanges and lists the most recent ones, oldest first.
type Journal interface {
	protocol.Recorder
	List(limit int) ([]Entry, error)
	Close() error
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

func encodeEntry(e Entry) ([]byte, error) {
	return encMode.Marshal(e)
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

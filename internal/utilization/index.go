package utilization

import (
	"time"

	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// GPULookup resolves the per-GPU readings a machine reported for one minute. The returned slice is
// indexed by local GPU slot and must not be modified.
type GPULookup interface {
	GPUReadings(machine string, minute time.Time) ([]Reading, bool)
}

// HostLookup resolves the single host-level reading (CPU or memory) of a machine for one minute.
type HostLookup interface {
	HostReading(machine string, minute time.Time) (Reading, bool)
}

type minuteKey struct {
	machine string
	minute  int64
}

func keyOf(machine string, ts time.Time) minuteKey {
	return minuteKey{machine: machine, minute: tracetime.FloorToMinute(ts).Unix()}
}

// GPUIndex holds per-GPU readings keyed by (machine, minute). It is filled by the loader and only
// read afterwards, so concurrent lookups need no locking.
type GPUIndex struct {
	rows map[minuteKey][]Reading
}

func NewGPUIndex() *GPUIndex {
	return &GPUIndex{rows: make(map[minuteKey][]Reading)}
}

// Put records the readings of a row, replacing any earlier row for the same machine and minute.
func (idx *GPUIndex) Put(machine string, minute time.Time, slots []Reading) {
	idx.rows[keyOf(machine, minute)] = slots
}

func (idx *GPUIndex) GPUReadings(machine string, minute time.Time) ([]Reading, bool) {
	slots, ok := idx.rows[keyOf(machine, minute)]
	return slots, ok
}

func (idx *GPUIndex) Len() int {
	return len(idx.rows)
}

// HostIndex holds one host-level reading per (machine, minute).
type HostIndex struct {
	rows map[minuteKey]Reading
}

func NewHostIndex() *HostIndex {
	return &HostIndex{rows: make(map[minuteKey]Reading)}
}

func (idx *HostIndex) Put(machine string, minute time.Time, reading Reading) {
	idx.rows[keyOf(machine, minute)] = reading
}

func (idx *HostIndex) HostReading(machine string, minute time.Time) (Reading, bool) {
	reading, ok := idx.rows[keyOf(machine, minute)]
	return reading, ok
}

func (idx *HostIndex) Len() int {
	return len(idx.rows)
}

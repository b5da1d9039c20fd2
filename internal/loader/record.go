package loader

import (
	"sync"
	"time"
)

// Record is one decoded row of a utilization CSV.
type Record interface {
	GetTS() time.Time
	GetMachine() string

	// Reset clears the fields so a pooled record never carries cells from a previous row.
	Reset()
}

type RecordProvider interface {
	Get() Record
	Recycle(Record)
}

type RecordPool struct {
	pool sync.Pool
}

func NewRecordPool(newRecord func() Record) *RecordPool {
	return &RecordPool{pool: sync.Pool{New: func() interface{} { return newRecord() }}}
}

func (p *RecordPool) Get() Record {
	rec, _ := p.pool.Get().(Record)
	rec.Reset()
	return rec
}

func (p *RecordPool) Recycle(rec Record) {
	p.pool.Put(rec)
}

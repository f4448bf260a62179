package aof

import (
	"sync"
	"time"
)

// Health is a point-in-time view of a log's durability.
//
// Degraded is set by any failed write or flush, or a dropped record, and
// cleared by the next flush that reaches stable storage. While degraded,
// records are kept in memory (up to the pending cap) and retried, but may be
// lost if the process exits. Dropped counts records that never made it
// into the buffer; a log with Dropped > 0 no longer matches the cache.
type Health struct {
	LastErrorAt   time.Time
	LastError     error
	Records       uint64 // records appended since Open
	Flushes       uint64 // successful flushes
	WriteFailures uint64
	FlushFailures uint64
	Dropped       uint64 // records rejected with ErrBufferFull
	PendingBytes  int // bytes buffered and not yet handed to the file
	Degraded      bool
}

type healthState struct {
	mu sync.Mutex
	h  Health
}

func (s *healthState) recordAppend(pending int) {
	s.mu.Lock()
	s.h.Records++
	s.h.PendingBytes = pending
	s.mu.Unlock()
}

func (s *healthState) recordWriteFailure(err error, pending int) {
	s.mu.Lock()
	s.h.WriteFailures++
	s.fail(err, pending)
	s.mu.Unlock()
}

func (s *healthState) recordFlushFailure(err error, pending int) {
	s.mu.Lock()
	s.h.FlushFailures++
	s.fail(err, pending)
	s.mu.Unlock()
}

func (s *healthState) recordDrop(err error, pending int) {
	s.mu.Lock()
	s.h.Dropped++
	s.fail(err, pending)
	s.mu.Unlock()
}

func (s *healthState) fail(err error, pending int) {
	s.h.Degraded = true
	s.h.LastError = err
	s.h.LastErrorAt = time.Now()
	s.h.PendingBytes = pending
}

func (s *healthState) recordFlush() {
	s.mu.Lock()
	s.h.Flushes++
	s.h.Degraded = false
	s.h.PendingBytes = 0
	s.mu.Unlock()
}

func (s *healthState) snapshot() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

// Package persist selects how a store records its mutations.
//
// There are exactly two backends:
//   - Null: nothing is recorded; the store is a plain in-memory map
//   - Log: every mutation is appended to an append-only log file
//
// The choice is made once, when the store is built. Backend is sealed so no
// other implementation can be substituted.
//
// Recording is best-effort. A failed write is logged and reflected in
// Health, but never returned to the caller, so slow or failing storage never
// blocks a Set or Delete.
package persist

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hurrahdb/hurrahdb/internal/aof"
)

// Health is the durability state reported by a backend.
type Health = aof.Health

// Backend records mutations for durability.
type Backend interface {
	// RecordSet records that key now holds value.
	RecordSet(key string, value []byte)
	// RecordDelete records that key was removed.
	RecordDelete(key string)
	// Flush pushes recorded mutations to stable storage.
	Flush() error
	// Health reports whether recent recording succeeded.
	Health() Health
	// Close flushes and releases the backend.
	Close() error

	sealed()
}

// Null discards every mutation.
type Null struct{}

// RecordSet does nothing.
func (Null) RecordSet(string, []byte) {}

// RecordDelete does nothing.
func (Null) RecordDelete(string) {}

// Flush always succeeds; there is nothing to write.
func (Null) Flush() error { return nil }

// Health reports the zero Health: never degraded, no records.
func (Null) Health() Health { return Health{} }

// Close always succeeds.
func (Null) Close() error { return nil }

func (Null) sealed() {}

// Log records mutations in an append-only log file.
type Log struct {
	log    *aof.Log
	logger *slog.Logger
}

// OpenLog opens the log at path, replays it and starts flushing every
// syncInterval. The replayed mapping is returned for priming the cache.
//
// Errors are those of aof.Open: *aof.IOError when the file cannot be opened
// and *aof.CorruptLogError (matching aof.ErrCorruptLog) when replay fails.
func OpenLog(path string, syncInterval time.Duration, logger *slog.Logger) (map[string][]byte, *Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, l, err := aof.Open(path, syncInterval, aof.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("append-only log replayed", "path", path, "keys", len(data))
	return data, &Log{log: l, logger: logger}, nil
}

// RecordSet appends a Set record. A failed append is logged and reflected
// in Health; it is never returned to the caller.
func (l *Log) RecordSet(key string, value []byte) {
	if err := l.log.AppendSet(key, value); err != nil {
		l.logger.Error("failed to record set", "key", key, "path", l.log.Path(), "error", err)
	}
}

// RecordDelete appends a Del record, with the same error handling as
// RecordSet.
func (l *Log) RecordDelete(key string) {
	if err := l.log.AppendDelete(key); err != nil {
		l.logger.Error("failed to record delete", "key", key, "path", l.log.Path(), "error", err)
	}
}

// Flush writes buffered records and syncs the file. It returns
// aof.ErrClosed after Close.
func (l *Log) Flush() error { return l.log.Flush() }

// Health returns a snapshot of the log's write and flush counters.
func (l *Log) Health() Health { return l.log.Health() }

// Close stops the background flush, flushes once more and closes the
// file. It is safe to call more than once.
func (l *Log) Close() error { return l.log.Close() }

func (l *Log) sealed() {}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.log.Path()
}

// Quarantine moves a log file out of the way so a fresh one can be created
// at path. The file is renamed to "<path>.corrupt-<uuid>" and the new name is
// returned.
func Quarantine(path string) (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", path, uuid.NewString())
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to quarantine %s: %w", path, err)
	}
	return target, nil
}

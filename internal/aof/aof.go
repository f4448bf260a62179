// Package aof implements the append-only log that backs a durable store.
//
// The log is a UTF-8 text file of newline-delimited records:
//
//	Set        Del
//	<key>      <key>
//	<value>
//
// Records are buffered in memory and handed to the file either when the
// buffer fills or when the background sync loop fires, so a successful
// append means "queued for persistence", not "on stable storage". Opening a
// log replays it from the beginning and returns the resulting mapping.
//
// Example usage:
//
//	data, log, err := aof.Open("store.aof", time.Second)
//	if err != nil {
//		return err
//	}
//	defer log.Close()
//
//	log.AppendSet("user:1", []byte(`{"name":"x"}`))
//	log.AppendDelete("user:2")
//
// All methods are safe for concurrent use.
package aof

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	// DefaultBufferSize is the number of buffered bytes that forces a write
	// to the file ahead of the next sync tick.
	DefaultBufferSize = 64 * 1024

	// DefaultMaxPending caps the bytes kept for retry while the file is
	// refusing writes.
	DefaultMaxPending = 64 * 1024 * 1024
)

// Log owns one append-only file. Writers and the sync loop share mu, so a
// record is never interleaved with another record or with a flush.
type Log struct {
	file    *os.File
	logger  *slog.Logger
	done    chan struct{}
	path    string
	pending []byte // records not yet written to file
	health  healthState
	wg      sync.WaitGroup
	mu      sync.Mutex
	bufSize int
	maxPend int
	dirty   bool // file written since last fsync
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	logger     *slog.Logger
	bufferSize int
	maxPending int
}

// Option configures a Log at Open time.
type Option func(*options)

// WithLogger sets the logger used for background flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBufferSize sets how many bytes may accumulate before an append
// writes through to the file. Values <= 0 keep the default.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithMaxPending caps how many unwritten bytes are held for retry while
// writes to the file fail. Once reached, further appends are rejected with
// ErrBufferFull until a flush drains the buffer. A single record is always
// accepted into an empty buffer. Values <= 0 keep the default.
func WithMaxPending(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPending = n
		}
	}
}

// Open opens path for appending, creating it if needed, replays its
// contents and starts the background sync loop with the given period.
// Existing content is never truncated.
//
// Returns:
//   - The mapping produced by replaying the file
//   - The Log, ready for appends
//   - *IOError if the file cannot be opened or read, *CorruptLogError if
//     replay finds a malformed record
func Open(path string, syncInterval time.Duration, opts ...Option) (map[string][]byte, *Log, error) {
	if syncInterval <= 0 {
		return nil, nil, fmt.Errorf("aof: sync interval must be positive: %v", syncInterval)
	}

	o := options{
		logger:     slog.Default(),
		bufferSize: DefaultBufferSize,
		maxPending: DefaultMaxPending,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxPending < o.bufferSize {
		o.maxPending = o.bufferSize
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, &IOError{Op: "open", Path: path, Err: err}
	}

	data, err := replayFile(path)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	l := &Log{
		file:    file,
		logger:  o.logger,
		done:    make(chan struct{}),
		path:    path,
		pending: make([]byte, 0, o.bufferSize),
		bufSize: o.bufferSize,
		maxPend: o.maxPending,
	}

	l.wg.Add(1)
	go l.syncLoop(syncInterval)

	o.logger.Debug("aof opened", "path", path, "keys", len(data), "sync_interval", syncInterval)
	return data, l, nil
}

func replayFile(path string) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return replay(f, path)
}

// Path returns the file this log appends to.
func (l *Log) Path() string {
	return l.path
}

// AppendSet queues a Set record. ErrBufferFull means the record was
// dropped because earlier records are still waiting to be written. Any
// other error means the record is buffered but writing it through to the
// file failed; the next flush retries it.
func (l *Log) AppendSet(key string, value []byte) error {
	return l.append(FormatSet(key, value))
}

// AppendDelete queues a Del record. Errors follow AppendSet.
func (l *Log) AppendDelete(key string) error {
	return l.append(FormatDelete(key))
}

func (l *Log) append(record []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if len(l.pending) > 0 && len(l.pending)+len(record) > l.maxPend {
		l.health.recordDrop(ErrBufferFull, len(l.pending))
		return fmt.Errorf("aof append %s: %w", l.path, ErrBufferFull)
	}

	l.pending = append(l.pending, record...)

	var err error
	if len(l.pending) >= l.bufSize {
		err = l.writePending()
	}

	l.health.recordAppend(len(l.pending))
	if err != nil {
		l.health.recordWriteFailure(err, len(l.pending))
		return fmt.Errorf("aof write %s: %w", l.path, err)
	}
	return nil
}

// writePending hands buffered records to the file. Whatever the file did
// not accept stays buffered. Caller holds mu.
func (l *Log) writePending() error {
	if len(l.pending) == 0 {
		return nil
	}

	n, err := l.file.Write(l.pending)
	if n > 0 {
		l.dirty = true
	}
	l.pending = l.pending[:copy(l.pending, l.pending[n:])]
	return err
}

// Flush writes every buffered record to the file and fsyncs it.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	return l.flush()
}

func (l *Log) flush() error {
	if len(l.pending) == 0 && !l.dirty {
		return nil
	}

	if err := l.writePending(); err != nil {
		l.health.recordFlushFailure(err, len(l.pending))
		return fmt.Errorf("aof flush %s: %w", l.path, err)
	}

	if l.dirty {
		if err := l.file.Sync(); err != nil {
			l.health.recordFlushFailure(err, len(l.pending))
			return fmt.Errorf("aof sync %s: %w", l.path, err)
		}
		l.dirty = false
	}

	l.health.recordFlush()
	return nil
}

// syncLoop flushes on every tick until Close. A failed flush is logged and
// retried on the next tick.
func (l *Log) syncLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Flush(); err != nil && !errors.Is(err, ErrClosed) {
				l.logger.Error("aof background flush failed", "path", l.path, "error", err)
			}
		case <-l.done:
			return
		}
	}
}

// Health reports the durability state of the log.
func (l *Log) Health() Health {
	return l.health.snapshot()
}

// Close stops the sync loop, flushes outstanding records and closes the
// file. Calling Close more than once returns the first result.
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()

		l.mu.Lock()
		defer l.mu.Unlock()

		flushErr := l.flush()
		l.closed = true
		l.closeErr = errors.Join(flushErr, l.file.Close())
	})
	return l.closeErr
}

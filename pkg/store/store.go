// Package store is the entry point of HurrahDB: an in-memory cache fronting
// an optional append-only log.
//
// Reads are served from the cache only. Writes update the cache and are
// recorded by the configured persistence backend. With the append-only log
// backend, a store rebuilt from the same file sees exactly the state the
// previous store left behind.
//
// Example usage:
//
//	s, err := store.New(&config.Config{
//		Kind: config.KindLog,
//		Log:  &config.LogConfig{Path: "app.aof", SyncInterval: time.Second},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.Set("user:1", User{Name: "x"})
//	u, ok, err := store.GetAs[User](s, "user:1")
//
// A successful Set or Delete means the mutation is visible and queued for
// the log. It reaches stable storage on the next background flush, an
// explicit Flush, or Close.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hurrahdb/hurrahdb/internal/aof"
	"github.com/hurrahdb/hurrahdb/pkg/cache"
	"github.com/hurrahdb/hurrahdb/pkg/codec"
	"github.com/hurrahdb/hurrahdb/pkg/config"
	"github.com/hurrahdb/hurrahdb/pkg/persist"
)

// Store binds one cache to one persistence backend.
type Store struct {
	cache   *cache.Cache
	backend persist.Backend
	codec   codec.Codec
	logger  *slog.Logger

	// writeMu orders Set and Delete so the cache and the log agree on the
	// sequence of mutations for every key.
	writeMu sync.Mutex
}

type options struct {
	logger *slog.Logger
	codec  codec.Codec
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec replaces the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// New builds a Store from cfg.
//
// A nil cfg or KindNone yields an empty, purely in-memory store and touches
// no files. KindLog opens (or creates) the log file and primes the cache by
// replaying it.
//
// Returns:
//   - *config.MissingConfigurationError if KindLog lacks a path or interval
//   - *aof.IOError if the log file cannot be opened or read
//   - *aof.CorruptLogError if replay fails and cfg.OnCorrupt is CorruptFail
func New(cfg *config.Config, opts ...Option) (*Store, error) {
	o := options{
		logger: slog.Default(),
		codec:  codec.JSON{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		codec:  o.codec,
		logger: o.logger,
	}

	if cfg == nil || cfg.Kind == config.KindNone {
		s.cache = cache.New()
		s.backend = persist.Null{}
		return s, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data, backend, err := openLog(cfg, o.logger)
	if err != nil {
		return nil, err
	}

	s.cache = cache.NewFrom(data)
	s.backend = backend
	return s, nil
}

func openLog(cfg *config.Config, logger *slog.Logger) (map[string][]byte, *persist.Log, error) {
	path := cfg.Log.Path

	data, backend, err := persist.OpenLog(path, cfg.Log.SyncInterval, logger)
	if err == nil {
		return data, backend, nil
	}

	if !errors.Is(err, aof.ErrCorruptLog) || cfg.OnCorrupt != config.CorruptQuarantine {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	moved, qerr := persist.Quarantine(path)
	if qerr != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to open store: %w", err), qerr)
	}
	logger.Warn("corrupt append-only log quarantined, starting empty",
		"path", path, "quarantined_to", moved, "error", err)

	data, backend, err = persist.OpenLog(path, cfg.Log.SyncInterval, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return data, backend, nil
}

// Set encodes value and stores it under key, replacing any previous value.
//
// Returns:
//   - *InvalidKeyError if key is empty or contains a newline
//   - *codec.CodecError if encoding fails or the encoded value contains a
//     newline
//
// On error nothing is stored or recorded. Backend failures are logged and
// reported through Health, never returned.
func (s *Store) Set(key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}

	encoded, err := s.codec.Encode(value)
	if err != nil {
		return err
	}
	if bytes.IndexByte(encoded, '\n') >= 0 {
		return &codec.CodecError{Op: "encode", Err: errors.New("encoded value contains a newline")}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.backend.RecordSet(key, encoded)
	s.cache.Set(key, encoded)
	return nil
}

// Get decodes the value stored under key into dst, which must be a
// pointer. It reports whether the key was present. A value that cannot be
// decoded into dst yields a *codec.CodecError.
func (s *Store) Get(key string, dst any) (bool, error) {
	encoded, exists := s.cache.Get(key)
	if !exists {
		return false, nil
	}
	if err := s.codec.Decode(encoded, dst); err != nil {
		return true, err
	}
	return true, nil
}

// GetAs is the generic form of Get.
//
// Example:
//
//	m, ok, err := store.GetAs[Model](s, "some-key")
func GetAs[T any](s *Store, key string) (T, bool, error) {
	var out T
	found, err := s.Get(key, &out)
	if err != nil || !found {
		var zero T
		return zero, found, err
	}
	return out, true, nil
}

// Delete removes key. Deleting an absent key is not an error and is still
// recorded, so replaying the log reproduces the same sequence. A key Set
// would reject can never be present, so it is logged and skipped.
func (s *Store) Delete(key string) {
	if err := validateKey(key); err != nil {
		s.logger.Warn("ignoring delete", "error", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.cache.Del(key)
	s.backend.RecordDelete(key)
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) bool {
	return s.cache.Exists(key)
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Keys returns all stored keys, sorted.
func (s *Store) Keys() []string {
	return s.cache.Keys()
}

// Stats returns cache statistics: "keys" and "bytes".
func (s *Store) Stats() map[string]interface{} {
	return s.cache.Stats()
}

// Flush forces recorded mutations to stable storage.
func (s *Store) Flush() error {
	return s.backend.Flush()
}

// Health reports the durability state of the backend. The in-memory
// backend always reports healthy.
func (s *Store) Health() persist.Health {
	return s.backend.Health()
}

// Close stops background flushing, flushes outstanding mutations and
// releases the log file. The store must not be written to afterwards.
func (s *Store) Close() error {
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

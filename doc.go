// Package hurrahdb is an embedded key-value store: an in-memory cache
// fronting an optional append-only log.
//
// Clients store and retrieve structured values under string keys. With the
// append-only log enabled, every mutation is recorded and the store is
// rebuilt on restart by replaying the log from the beginning.
//
// # Architecture Overview
//
//   - Store (pkg/store): the facade callers use; Set, Get, Delete
//   - Cache (pkg/cache): the map every read is served from
//   - Persistence (pkg/persist): Null or Log backend, chosen at construction
//   - Append-only log (internal/aof): record format, replay, background flush
//   - Codec (pkg/codec): typed values to bytes and back (JSON by default)
//   - Configuration (pkg/config): flags, environment variables and YAML
//
// # Quick Start
//
//	import "github.com/hurrahdb/hurrahdb/pkg/store"
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
//	s.Set("user:123", User{Name: "john"})
//	u, found, err := store.GetAs[User](s, "user:123")
//	s.Delete("user:123")
//
// # Log Format
//
// The log is newline-delimited UTF-8 text, only ever appended to:
//
//	Set
//	user:123
//	{"name":"john"}
//	Del
//	user:123
//
// Keys and values must not contain a newline. The JSON codec never emits
// one.
//
// # Durability
//
// A successful Set or Delete is visible immediately and queued for the log.
// Queued records reach stable storage on the next background flush (every
// sync interval), on Store.Flush, or on Store.Close. Write and flush failures
// are logged and reported by Store.Health; they are retried on the next
// flush rather than returned to the caller.
//
// A log that fails to replay is reported by store.New. With the quarantine
// policy the file is renamed aside and the store starts empty instead.
//
// # Command-Line Tool
//
//	hurrahdb -persistence aof -aof-file app.aof set user:1 '{"name":"x"}'
//	hurrahdb -persistence aof -aof-file app.aof get user:1
package hurrahdb

// Command hurrahdb runs commands against a HurrahDB store.
//
// Usage:
//
//	hurrahdb [flags] set <key> <json>
//	hurrahdb [flags] get <key>
//	hurrahdb [flags] del <key>
//	hurrahdb [flags] keys
//	hurrahdb [flags] dump
//	hurrahdb [flags]            # read commands from stdin
//
// Example:
//
//	hurrahdb -persistence aof -aof-file app.aof set user:1 '{"name":"x"}'
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/hurrahdb/hurrahdb/internal/aof"
	"github.com/hurrahdb/hurrahdb/pkg/config"
	"github.com/hurrahdb/hurrahdb/pkg/store"
)

var errUsage = errors.New("usage: set <key> <json> | get <key> | del <key> | keys | dump | health")

func main() {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if len(args) > 0 && args[0] == "dump" {
		if err := dump(cfg, os.Stdout); err != nil {
			logger.Error("dump failed", "error", err)
			os.Exit(1)
		}
		return
	}

	s, err := store.New(cfg, store.WithLogger(logger))
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	code := 0
	if len(args) > 0 {
		if err := run(s, args, os.Stdout); err != nil {
			logger.Error("command failed", "command", args[0], "error", err)
			code = 1
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		if err := repl(ctx, s, os.Stdin, os.Stdout); err != nil {
			logger.Error("session failed", "error", err)
			code = 1
		}
		stop()
	}

	if err := s.Close(); err != nil {
		logger.Error("error closing store", "error", err)
		code = 1
	}
	os.Exit(code)
}

// repl executes one command per input line until EOF or ctx is cancelled.
func repl(ctx context.Context, s *store.Store, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
			if fields[0] == "" {
				continue
			}
			if err := run(s, fields, out); err != nil {
				fmt.Fprintf(out, "ERR %v\n", err)
			}
		}
	}
}

// run executes a single command against s.
func run(s *store.Store, args []string, out io.Writer) error {
	switch {
	case args[0] == "set" && len(args) == 3:
		return s.Set(args[1], json.RawMessage(args[2]))

	case args[0] == "get" && len(args) == 2:
		value, ok, err := store.GetAs[json.RawMessage](s, args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "(nil)")
			return nil
		}
		fmt.Fprintln(out, string(value))
		return nil

	case args[0] == "del" && len(args) == 2:
		s.Delete(args[1])
		return nil

	case args[0] == "keys" && len(args) == 1:
		for _, key := range s.Keys() {
			fmt.Fprintln(out, key)
		}
		return nil

	case args[0] == "health" && len(args) == 1:
		h := s.Health()
		fmt.Fprintf(out, "degraded=%t records=%d flushes=%d write_failures=%d flush_failures=%d dropped=%d pending_bytes=%d\n",
			h.Degraded, h.Records, h.Flushes, h.WriteFailures, h.FlushFailures, h.Dropped, h.PendingBytes)
		stats := s.Stats()
		fmt.Fprintf(out, "keys=%d bytes=%d\n", stats["keys"], stats["bytes"])
		if h.LastError != nil {
			fmt.Fprintf(out, "last_error=%q at=%s\n", h.LastError, h.LastErrorAt)
		}
		return nil

	default:
		return errUsage
	}
}

// dump replays the configured log read-only and prints its final state.
func dump(cfg *config.Config, out io.Writer) error {
	if cfg.Kind != config.KindLog {
		return errors.New("dump requires -persistence aof")
	}

	f, err := os.Open(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := aof.Replay(f)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(out, "%s\t%s\n", key, data[key])
	}
	return nil
}

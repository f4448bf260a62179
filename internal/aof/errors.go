package aof

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptLog is matched by every *CorruptLogError.
	ErrCorruptLog = errors.New("corrupt append-only log")

	// ErrClosed is returned by appends and flushes after Close.
	ErrClosed = errors.New("append-only log is closed")

	// ErrBufferFull is returned by appends while the retry buffer is at
	// its cap.
	ErrBufferFull = errors.New("append-only log buffer full")
)

// IOError reports a failure to open or read the log file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("aof %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptLogError describes a structural violation found during replay.
// Line is 1-based and points at the offending line, or one past the last
// line when the file ends in the middle of a record.
type CorruptLogError struct {
	Path   string
	Line   int
	Reason string
}

func (e *CorruptLogError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupt append-only log at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt append-only log %s at line %d: %s", e.Path, e.Line, e.Reason)
}

func (e *CorruptLogError) Is(target error) bool {
	return target == ErrCorruptLog
}

package aof

import (
	"bufio"
	"io"
)

// Action is the tag written on the first line of every record.
type Action uint8

const (
	ActionSet Action = iota // three-line record: tag, key, value
	ActionDel               // two-line record: tag, key
)

const (
	tagSet = "Set"
	tagDel = "Del"
)

func (a Action) String() string {
	switch a {
	case ActionSet:
		return tagSet
	case ActionDel:
		return tagDel
	default:
		return "unknown"
	}
}

// lines is the number of lines a record with this action occupies.
func (a Action) lines() int {
	if a == ActionSet {
		return 3
	}
	return 2
}

func parseAction(tag string) (Action, bool) {
	switch tag {
	case tagSet:
		return ActionSet, true
	case tagDel:
		return ActionDel, true
	default:
		return 0, false
	}
}

// FormatSet renders a Set record exactly as it is appended to the log.
// Keys and values must not contain a newline; this is not checked.
func FormatSet(key string, value []byte) []byte {
	buf := make([]byte, 0, len(tagSet)+len(key)+len(value)+3)
	buf = append(buf, tagSet...)
	buf = append(buf, '\n')
	buf = append(buf, key...)
	buf = append(buf, '\n')
	buf = append(buf, value...)
	return append(buf, '\n')
}

// FormatDelete renders a Del record exactly as it is appended to the log.
func FormatDelete(key string) []byte {
	buf := make([]byte, 0, len(tagDel)+len(key)+2)
	buf = append(buf, tagDel...)
	buf = append(buf, '\n')
	buf = append(buf, key...)
	return append(buf, '\n')
}

// Replay reads a complete log from r and returns the resulting key/value
// mapping. Records are applied in file order: Set overwrites, Del removes.
//
// Any structural violation (unknown tag, empty key, record cut short by
// end of input) yields a *CorruptLogError. A record is complete only once
// its last newline is present, so a torn final line is a truncated record.
// Lines have no length limit. Nothing is returned on error.
//
// Example:
//
//	m, err := aof.Replay(strings.NewReader("Set\na\n1\nDel\na\n"))
//	// m is empty, err is nil
func Replay(r io.Reader) (map[string][]byte, error) {
	return replay(r, "")
}

func replay(r io.Reader, path string) (map[string][]byte, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	data := make(map[string][]byte)
	var (
		action Action
		key    string
		pos    int // position of the next line within the current record
		lineNo int
	)

	corrupt := func(reason string) error {
		return &CorruptLogError{Path: path, Line: lineNo, Reason: reason}
	}
	truncated := func() error {
		if pos == 0 {
			return corrupt("truncated record")
		}
		return corrupt("truncated " + action.String() + " record")
	}

	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			if len(line) > 0 {
				lineNo++
				return nil, truncated()
			}
			break
		}
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}

		lineNo++
		line = line[:len(line)-1]

		switch pos {
		case 0:
			a, ok := parseAction(string(line))
			if !ok {
				return nil, corrupt("unknown action tag " + quoteLine(line))
			}
			action = a
		case 1:
			if len(line) == 0 {
				return nil, corrupt("empty key")
			}
			key = string(line)
			if action == ActionDel {
				delete(data, key)
			}
		case 2:
			data[key] = line
		}

		pos = (pos + 1) % action.lines()
	}

	if pos != 0 {
		lineNo++
		return nil, truncated()
	}

	return data, nil
}

func quoteLine(line []byte) string {
	const limit = 32
	if len(line) > limit {
		return "\"" + string(line[:limit]) + "...\""
	}
	return "\"" + string(line) + "\""
}

package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is matched by every *InvalidKeyError.
var ErrInvalidKey = errors.New("invalid key")

// InvalidKeyError reports a key the append-only log cannot represent.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

// validateKey rejects keys that would not survive a log replay. The rule
// applies to in-memory stores too, so switching backends never changes
// which keys are accepted.
func validateKey(key string) error {
	if key == "" {
		return &InvalidKeyError{Key: key, Reason: "key is empty"}
	}
	if strings.ContainsRune(key, '\n') {
		return &InvalidKeyError{Key: key, Reason: "key contains a newline"}
	}
	return nil
}

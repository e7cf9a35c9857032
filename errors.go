package swrcache

import (
	"fmt"
)

// Storage operations named in StorageError.Op.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpDelete = "delete"
	OpEncode = "encode"
)

// StorageError describes a swallowed storage fault. It is only ever handed to Hooks
// and the Logger; no cache method returns it.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("swrcache: %s %q: unknown error", e.Op, e.Key)
	}
	return fmt.Sprintf("swrcache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

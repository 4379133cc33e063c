package store

import "fmt"

// CorruptDataError reports a collection file that exists but cannot be parsed.
// It is never recovered by falling back to the default value.
type CorruptDataError struct {
	Name string
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt collection %q (%s): %v", e.Name, e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// PersistenceError reports a failed read, write, sync or rename of a collection file.
type PersistenceError struct {
	Name string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist collection %q: %s: %v", e.Name, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

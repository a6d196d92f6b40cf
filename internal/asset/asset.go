// Package asset resolves named children of a directory, either directly under
// it (local lookup) or anywhere in a tree of directory nodes rooted there
// (global lookup).
package asset

import (
	"errors"
	"fmt"
)

// Asset is anything backed by a filesystem path with a liveness flag.
type Asset interface {
	Path() string
	IsAlive() bool
}

// Kind classifies lookup failures.
type Kind int

const (
	// KindNotFound means the joined candidate path does not exist at query time.
	KindNotFound Kind = iota
	// KindNotAlive means the queried branch did not exist when it was constructed.
	KindNotAlive
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotAlive:
		return "not_alive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors for use with errors.Is. Any *Error of the same kind matches.
var (
	ErrNotFound = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrNotAlive = &Error{Kind: KindNotAlive, Msg: "branch is not alive"}
)

// Error is a lookup failure carrying the offending path. Err holds the
// underlying stat failure, if any.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the Kind of an *Error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func notAlive(path string) error {
	return &Error{Kind: KindNotAlive, Path: path, Msg: "branch is not alive"}
}

func notFound(path string, cause error) error {
	return &Error{Kind: KindNotFound, Path: path, Msg: "branch was not found", Err: cause}
}

// Package persistence keeps whole collections as single snapshots in a
// pluggable backend.
package persistence

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by a Backend when the named snapshot has never
// been written.
var ErrBlobNotFound = errors.New("blob not found")

// Backend stores opaque named snapshots. Write must replace the previous
// snapshot atomically: a reader sees either the old or the new bytes.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// Package ledger reads the set of paths the virtualization layer has
// hydrated, classified as placeholders (fast) or modified files (slow).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// ErrLedgerUnavailable is returned when a ledger source cannot be read.
var ErrLedgerUnavailable = errors.New("hydration ledger unavailable")

// Classification tells how a hydrated path is managed.
type Classification int

const (
	// Placeholder paths are served by the virtualization layer.
	Placeholder Classification = iota
	// Modified paths have been written locally and are tracked by git.
	Modified
)

func (c Classification) String() string {
	switch c {
	case Placeholder:
		return "placeholder"
	case Modified:
		return "modified"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// Entry is one hydrated path.
type Entry struct {
	Path     string
	Class    Classification
	IsFolder bool
}

// Reader yields ledger entries lazily.
type Reader interface {
	// Iterate yields every entry whose path equals prefix or lies beneath it.
	// The empty prefix covers the whole repository. Read failures are
	// yielded in sequence and wrap ErrLedgerUnavailable.
	Iterate(ctx context.Context, prefix string) iter.Seq2[Entry, error]
}

// Unavailable wraps err as a ledger failure for the named source.
func Unavailable(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLedgerUnavailable, source, err)
}

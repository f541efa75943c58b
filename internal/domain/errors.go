package domain

import (
	"errors"
	"fmt"
)

// ErrNoSourcesAvailable fails a cycle when every configured source errored.
var ErrNoSourcesAvailable = errors.New("no sources available")

// ErrDigestUnavailable is the requester-facing failure when a cycle failed
// and no previously completed digest can be served instead.
var ErrDigestUnavailable = errors.New("digest unavailable")

// SourceFailure records one unreachable or malformed source. It is logged
// and counted but never fails the cycle on its own.
type SourceFailure struct {
	Kind     SourceKind
	SourceID int64
	Name     string
	Err      error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("source %s (%s/%d): %v", f.Name, f.Kind, f.SourceID, f.Err)
}

func (f SourceFailure) Unwrap() error { return f.Err }

// ScoringFailure marks one item that exhausted every provider attempt.
type ScoringFailure struct {
	ContentID string
	Provider  string
	Err       error
}

func (f ScoringFailure) Error() string {
	return fmt.Sprintf("score item %s via %s: %v", f.ContentID, f.Provider, f.Err)
}

func (f ScoringFailure) Unwrap() error { return f.Err }

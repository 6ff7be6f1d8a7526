// Package sink holds the output side of the controller: every backend a frame
// can be delivered to, plus the two wrappers that compose them.
//
// The set of variants is closed. Sink carries an unexported method so only the
// types in this package satisfy it, which lets constructors reject invalid
// nesting (a Sampled of a Sampled, a Composite inside a Composite) by type.
package sink

import (
	"context"
	"errors"

	"github.com/coreman2200/stripcast/internal/pixel"
)

var (
	// ErrBusFault wraps every Hardware write failure. There is no local
	// recovery for it.
	ErrBusFault = errors.New("hardware bus fault")
	// ErrInvalidNesting is returned when a wrapper is given a base it cannot
	// hold.
	ErrInvalidNesting = errors.New("invalid sink nesting")
)

// Sink consumes a full frame and delivers it to a backend.
type Sink interface {
	// Write delivers frame. The slice is shared between siblings of a
	// Composite and must not be modified.
	Write(ctx context.Context, frame []pixel.RGB) error
	// Close releases the backend.
	Close() error
	String() string

	sink()
}

// IsSecure reports whether s is a SecureStream or a Sampled view of one.
func IsSecure(s Sink) bool {
	switch v := s.(type) {
	case *SecureStream:
		return true
	case *Sampled:
		_, ok := v.base.(*SecureStream)
		return ok
	default:
		return false
	}
}

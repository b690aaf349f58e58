package molscene

import (
	"errors"
	"fmt"

	"github.com/molvis/molscene/core"
)

var (
	// ErrNoFrame is returned when an editing operation runs before any
	// frame has been registered.
	ErrNoFrame = errors.New("no frame registered")

	// ErrNoBondLayer is returned when a bond operation runs on a scene
	// whose frame was registered without a bond layer.
	ErrNoBondLayer = errors.New("no bond layer registered")

	// ErrFrameResident is returned when a frame-segment entity is deleted
	// without promoting the frame first.
	ErrFrameResident = errors.New("entity is frame-resident; promote the frame before deleting")

	// ErrUnknownLayer is returned when an operation names a layer the
	// scene does not own.
	ErrUnknownLayer = errors.New("unknown layer")
)

// ErrMissingEndpoint indicates a bond referencing an atom the scene does
// not know.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrMissingEndpoint struct {
	Bond  core.EntityID
	Atom  core.EntityID
	cause error
}

func (e *ErrMissingEndpoint) Error() string {
	return fmt.Sprintf("bond %d references missing atom %d", e.Bond, e.Atom)
}

func (e *ErrMissingEndpoint) Unwrap() error { return e.cause }

// ErrBadFrameInput indicates an invalid RegisterFrame argument.
type ErrBadFrameInput struct {
	Reason string
}

func (e *ErrBadFrameInput) Error() string {
	return fmt.Sprintf("invalid frame input: %s", e.Reason)
}

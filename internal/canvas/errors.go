package canvas

import "errors"

var (
	// ErrInvalidArea marks an area whose geometry cannot form a grid.
	ErrInvalidArea = errors.New("invalid area")
	// ErrDuplicateArea is returned when an area id is registered twice.
	ErrDuplicateArea = errors.New("area already registered")
	// ErrGestureActive is returned when a gesture starts while another is in progress.
	ErrGestureActive = errors.New("another gesture is in progress")
	// ErrUnknownEvent is returned by Dispatch for unrecognised event kinds.
	ErrUnknownEvent = errors.New("unknown event kind")
)

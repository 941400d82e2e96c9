package shadow

import "errors"

var (
	// ErrInvalidState is returned when a frame operation is called out of
	// order, e.g. a reservation after Render.
	ErrInvalidState = errors.New("shadow: invalid frame state")

	// ErrAllocation wraps a backend failure to provide a depth target.
	// The frame cannot be rendered.
	ErrAllocation = errors.New("shadow: depth target allocation failed")

	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("shadow: invalid settings")
)

package pager

import "errors"

var (
	// ErrIndexOutOfRange is returned by SelectSlide for an index outside [0, N).
	ErrIndexOutOfRange = errors.New("slide index out of range")

	// ErrUnknownKey is returned when no slide carries the requested key.
	ErrUnknownKey = errors.New("unknown slide key")

	// ErrNotInitialized is returned by operations invoked before Init.
	ErrNotInitialized = errors.New("pager not initialized")

	ErrNoSlides         = errors.New("pager needs at least one slide")
	ErrDuplicateKey     = errors.New("duplicate slide key")
	ErrInvalidItemWidth = errors.New("indicator item width must be positive")
)

package model

import "errors"

var (
	// ErrMalformedGeometry reports a point set that cannot be split into two
	// surfaces, or a surface that breaks its ordering invariant.
	ErrMalformedGeometry = errors.New("malformed geometry")

	ErrInvalidSpacingParameters = errors.New("invalid spacing parameters")

	// ErrInterpolationDomain is an internal consistency fault: sample positions
	// are produced inside [0, 1] by construction.
	ErrInterpolationDomain = errors.New("interpolation domain error")

	ErrSourceUnavailable = errors.New("coordinate source unavailable")
	ErrNotFound          = errors.New("airfoil not found")
)

package domain

import "errors"

var (
	// ErrUnknownSource is returned when a request names a source id that
	// is not registered.
	ErrUnknownSource = errors.New("unknown data source")

	// ErrInvalidAOI is returned when neither bounds nor geometry resolve
	// to a usable area of interest.
	ErrInvalidAOI = errors.New("invalid area of interest")

	// ErrNoResult is returned when a result artifact is requested for a
	// job that has not produced one.
	ErrNoResult = errors.New("no result artifact for job")
)

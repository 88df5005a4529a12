package scoring

import "errors"

var (
	// ErrInvalidInput is returned when a required field is missing or not a finite number.
	ErrInvalidInput = errors.New("invalid input")

	// ErrArtifactNotFound is returned when no fitted artifact exists at the given location.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidArtifact is returned for artifacts with an unknown format, version or feature layout.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrDegenerateSplit is returned when the labels cannot be split into stratified partitions.
	ErrDegenerateSplit = errors.New("degenerate split")
)

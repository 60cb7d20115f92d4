package extraction

import "errors"

// Common errors returned by the extraction package
var (
	// ErrUnavailable is returned when the language-understanding service
	// cannot be reached or keeps failing after the retry budget is spent.
	ErrUnavailable = errors.New("extraction service unavailable")

	// ErrInvalidResponse is returned when the service response cannot be
	// parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrInvalidConfig is returned when the extractor configuration is invalid.
	ErrInvalidConfig = errors.New("invalid extractor configuration")
)

package util

import "errors"

// Sentinel errors shared by the importer and the CLI
var (
	// ErrUnsupported indicates a file format the importer cannot read
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file is corrupt or unreadable
	ErrCorrupt = errors.New("corrupt file")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

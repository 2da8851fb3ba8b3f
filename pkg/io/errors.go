package io

import "fmt"

// MissingFileError is returned when a dataset or model directory lacks one of
// the files it must contain.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing file %s: %v", e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

package model

import "fmt"

// FormatError reports malformed input text: a libsvm token, an outcome lookup
// line or a label that does not fit the vocabulary.
type FormatError struct {
	// Line is the 1-based line number in the source file, 0 when unknown
	Line   int
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Input)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Input)
}

// IndexOutOfRangeError is returned when an index (a 1-based feature index or
// a label code) does not fit the dimension it is written into.
type IndexOutOfRangeError struct {
	Index  int
	Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d is out of range for length %d", e.Index, e.Length)
}

// DegenerateColumnError is returned for a label column that never takes a
// positive value, e.g. by Flatten or for a single label table with one outcome.
type DegenerateColumnError struct {
	Column int
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("label column %d has no positive value", e.Column)
}

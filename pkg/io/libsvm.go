package io

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"mtlnet/pkg/model"
)

// Feature is one index:value token of a libsvm line. Index is 1-based; the
// value is kept as text until the record is materialized.
type Feature struct {
	Index int
	Value string
}

type SparseRecord struct {
	Label    string
	Features []Feature
}

// Dimensions is the result of the scan pass over a libsvm file.
type Dimensions struct {
	Rows     int
	Features int
}

// ParseRecord parses a `<label> <idx1>:<val1> <idx2>:<val2> ...` line.
func ParseRecord(line string) (SparseRecord, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return SparseRecord{}, &model.FormatError{Input: line, Reason: "empty record"}
	}
	features, err := parseFeatureTokens(tokens[1:])
	if err != nil {
		return SparseRecord{}, err
	}
	return SparseRecord{Label: tokens[0], Features: features}, nil
}

// ParseFeatures parses a line made only of index:value tokens.
func ParseFeatures(line string) ([]Feature, error) {
	return parseFeatureTokens(strings.Fields(line))
}

func parseFeatureTokens(tokens []string) ([]Feature, error) {
	features := make([]Feature, len(tokens))
	seen := make(map[int]struct{}, len(tokens))
	for i, token := range tokens {
		sep := strings.IndexByte(token, ':')
		if sep < 0 {
			return nil, &model.FormatError{Input: token, Reason: "feature token lacks the ':' separator"}
		}
		index, err := strconv.Atoi(token[:sep])
		if err != nil || index < 1 {
			return nil, &model.FormatError{Input: token, Reason: "feature index must be a positive integer"}
		}
		if _, ok := seen[index]; ok {
			return nil, &model.FormatError{Input: token, Reason: "duplicate feature index"}
		}
		seen[index] = struct{}{}
		features[i] = Feature{Index: index, Value: token[sep+1:]}
	}
	return features, nil
}

// Materialize returns a dense vector of the given length with every feature
// written at position Index-1. A non-positive length defaults to the number
// of features, which is only correct for fully dense records.
func Materialize(features []Feature, length int) ([]float64, error) {
	if length <= 0 {
		length = len(features)
	}
	dense := make([]float64, length)
	if err := materializeInto(dense, features); err != nil {
		return nil, err
	}
	return dense, nil
}

func materializeInto(dense []float64, features []Feature) error {
	for _, f := range features {
		if f.Index-1 >= len(dense) {
			return &model.IndexOutOfRangeError{Index: f.Index, Length: len(dense)}
		}
		value, err := strconv.ParseFloat(f.Value, 64)
		if err != nil {
			return &model.FormatError{Input: f.Value, Reason: "feature value is not a number"}
		}
		dense[f.Index-1] = value
	}
	return nil
}

// ScanDimensions counts the lines of a libsvm stream and finds the largest
// feature index used on any of them.
func ScanDimensions(r io.Reader) (Dimensions, error) {
	var dims Dimensions
	err := forEachRecord(r, func(_ int, record SparseRecord) error {
		dims.Rows++
		for _, f := range record.Features {
			if f.Index > dims.Features {
				dims.Features = f.Index
			}
		}
		return nil
	})
	return dims, err
}

// MaxLineSize bounds a single line of the data and outcome lookup files.
const MaxLineSize = 64 * 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
	return scanner
}

// forEachRecord parses every line of r and hands it to fn with its 0-based row number.
func forEachRecord(r io.Reader, fn func(row int, record SparseRecord) error) error {
	scanner := newLineScanner(r)
	for row := 0; scanner.Scan(); row++ {
		record, err := ParseRecord(scanner.Text())
		if err != nil {
			return withLine(err, row+1)
		}
		if err := fn(row, record); err != nil {
			return withLine(err, row+1)
		}
	}
	return errors.Wrap(scanner.Err(), "error reading libsvm data")
}

func withLine(err error, line int) error {
	var formatErr *model.FormatError
	if errors.As(err, &formatErr) && formatErr.Line == 0 {
		formatErr.Line = line
		return formatErr
	}
	return errors.Wrapf(err, "line %d", line)
}

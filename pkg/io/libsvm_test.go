package io

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mtlnet/pkg/model"
)

func TestParseRecord(t *testing.T) {
	record, err := ParseRecord("3 1:2.0  7:0.5\t2:1")
	require.NoError(t, err)
	require.Equal(t, "3", record.Label)
	require.Equal(t, []Feature{{Index: 1, Value: "2.0"}, {Index: 7, Value: "0.5"}, {Index: 2, Value: "1"}}, record.Features)

	record, err = ParseRecord("2")
	require.NoError(t, err)
	require.Equal(t, "2", record.Label)
	require.Empty(t, record.Features)
}

func TestParseRecord_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "missing separator", line: "1 1:1.0 3"},
		{name: "zero index", line: "1 0:1.0"},
		{name: "negative index", line: "1 -2:1.0"},
		{name: "non numeric index", line: "1 a:1.0"},
		{name: "duplicate index", line: "1 2:1.0 2:3.0"},
		{name: "empty line", line: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.line)
			var formatErr *model.FormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestParseFeatures(t *testing.T) {
	features, err := ParseFeatures("4:0.25 1:3")
	require.NoError(t, err)
	require.Equal(t, []Feature{{Index: 4, Value: "0.25"}, {Index: 1, Value: "3"}}, features)

	features, err = ParseFeatures("")
	require.NoError(t, err)
	require.Empty(t, features)
}

func TestMaterialize(t *testing.T) {
	dense, err := Materialize([]Feature{{Index: 3, Value: "0.5"}, {Index: 1, Value: "2.0"}}, 5)
	require.NoError(t, err)
	require.Equal(t, []float64{2.0, 0, 0.5, 0, 0}, dense)

	_, err = Materialize([]Feature{{Index: 6, Value: "1.0"}}, 5)
	var rangeErr *model.IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 6, rangeErr.Index)
	require.Equal(t, 5, rangeErr.Length)

	_, err = Materialize([]Feature{{Index: 1, Value: "one"}}, 5)
	var formatErr *model.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestMaterialize_DefaultLength(t *testing.T) {
	dense, err := Materialize([]Feature{{Index: 1, Value: "1"}, {Index: 2, Value: "2"}}, -1)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, dense)

	// Only valid for dense records: a sparse one does not fit.
	_, err = Materialize([]Feature{{Index: 1, Value: "1"}, {Index: 4, Value: "2"}}, 0)
	var rangeErr *model.IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestScanDimensions(t *testing.T) {
	input := "1 1:1.0 3:2.0\n2 7:1.0 2:0.5\n1\n"
	dims, err := ScanDimensions(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, Dimensions{Rows: 3, Features: 7}, dims)

	_, err = ScanDimensions(strings.NewReader("1 1:1.0\n2 3\n"))
	var formatErr *model.FormatError
	require.ErrorAs(t, err, &formatErr)
	require.Equal(t, 2, formatErr.Line)
}

package io

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"mtlnet/pkg/model"
)

const (
	OutcomeLookupFile = "outcome-lookup.txt"
	TrainingDataFile  = "training-data.libsvm"
)

// ReadOutcomes reads the outcome lookup table of a dataset directory. Each
// line is `<code> <label>` and the codes must cover 1..n. The returned slice
// holds the label for code at index code, index 0 is unused. order lists the
// codes in the order of their lines.
func ReadOutcomes(dir string) (outcomes []string, order []int, err error) {
	path := filepath.Join(dir, OutcomeLookupFile)
	file, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	labels := map[int]string{}
	scanner := newLineScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, nil, &model.FormatError{Line: line, Input: text, Reason: "outcome line must be `<code> <label>`"}
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil || code < 1 {
			return nil, nil, &model.FormatError{Line: line, Input: text, Reason: "outcome code must be a positive integer"}
		}
		if _, ok := labels[code]; ok {
			return nil, nil, &model.FormatError{Line: line, Input: text, Reason: "duplicate outcome code"}
		}
		labels[code] = fields[1]
		order = append(order, code)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "error reading %s", path)
	}

	// distinct codes >= 1 cover 1..n exactly when none of them exceeds n
	for _, code := range order {
		if code > len(labels) {
			return nil, nil, &model.FormatError{Input: path, Reason: "outcome code " + strconv.Itoa(missingCode(labels)) + " is missing"}
		}
	}
	outcomes = make([]string, len(labels)+1)
	for code, label := range labels {
		outcomes[code] = label
	}
	return outcomes, order, nil
}

func missingCode(labels map[int]string) int {
	for code := 1; ; code++ {
		if _, ok := labels[code]; !ok {
			return code
		}
	}
}

// LoadVocabulary reads the outcome lookup table of dir and derives its vocabulary.
func LoadVocabulary(dir string) (*model.Vocabulary, error) {
	outcomes, order, err := ReadOutcomes(dir)
	if err != nil {
		return nil, err
	}
	vocabulary, err := model.NewVocabulary(outcomes, order)
	if err != nil {
		return nil, errors.Wrapf(err, "error building vocabulary from %s", filepath.Join(dir, OutcomeLookupFile))
	}
	return vocabulary, nil
}

func openFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &MissingFileError{Path: path, Err: err}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	return file, nil
}

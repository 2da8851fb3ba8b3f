package model

import (
	"fmt"
	"strings"
)

const (
	// TaskSeparator joins the task entries of a composite label
	TaskSeparator = "#"
	// ValueSeparator splits a task entry into task name and value
	ValueSeparator = "="
)

// LabelKind tells whether a dataset uses plain labels or composite multi-task labels.
type LabelKind int

const (
	SingleLabel LabelKind = iota
	CompositeLabel
)

func (k LabelKind) String() string {
	switch k {
	case SingleLabel:
		return "single"
	case CompositeLabel:
		return "composite"
	default:
		return fmt.Sprintf("LabelKind(%d)", int(k))
	}
}

func (k LabelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *LabelKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "single":
		*k = SingleLabel
	case "composite":
		*k = CompositeLabel
	default:
		return fmt.Errorf("unknown label kind %q", text)
	}
	return nil
}

// Vocabulary is derived from an outcome lookup table. For composite labels it
// holds one NameMap per task whose codes follow first-occurrence order in the
// table.
type Vocabulary struct {
	Kind LabelKind `json:"kind"`

	// Outcomes is indexed by the integer label code; index 0 is unused
	Outcomes []string `json:"outcomes"`

	// Tasks lists the task names in the order of the first outcome read
	Tasks []string `json:"tasks,omitempty"`

	// Values maps a task name to its value vocabulary
	Values map[string]*NameMap `json:"values,omitempty"`
}

// NewVocabulary builds the vocabulary of an outcome table. outcomes[0] is
// ignored so that outcomes[code] is the label for the integer code. order
// lists the codes in the order they were read: the first of them decides the
// label kind and the task order, and value indices are assigned as they are
// first seen along it. A nil order walks the codes in ascending order.
func NewVocabulary(outcomes []string, order []int) (*Vocabulary, error) {
	if len(outcomes) < 2 {
		return nil, &FormatError{Reason: "outcome table is empty"}
	}
	if order == nil {
		order = make([]int, len(outcomes)-1)
		for i := range order {
			order[i] = i + 1
		}
	}
	if len(order) != len(outcomes)-1 {
		return nil, &FormatError{Reason: fmt.Sprintf("outcome order lists %d codes, table has %d", len(order), len(outcomes)-1)}
	}
	for _, code := range order {
		if code < 1 || code >= len(outcomes) {
			return nil, &IndexOutOfRangeError{Index: code, Length: len(outcomes) - 1}
		}
	}

	v := &Vocabulary{
		Kind:     kindOf(outcomes[order[0]]),
		Outcomes: outcomes,
	}

	if v.Kind == SingleLabel {
		for i, code := range order {
			if label := outcomes[code]; kindOf(label) != SingleLabel {
				return nil, &FormatError{Line: i + 1, Input: label, Reason: "composite label in a single label outcome table"}
			}
		}
		return v, nil
	}

	v.Values = map[string]*NameMap{}
	for i, code := range order {
		label := outcomes[code]
		entries, err := splitComposite(label)
		if err != nil {
			err.Line = i + 1
			return nil, err
		}
		for _, e := range entries {
			values, ok := v.Values[e.task]
			if !ok {
				if i > 0 {
					return nil, &FormatError{Line: i + 1, Input: label, Reason: fmt.Sprintf("task %s is missing from the first outcome", e.task)}
				}
				values = NewNameMap()
				v.Values[e.task] = values
				v.Tasks = append(v.Tasks, e.task)
			}
			values.ValueFor(e.value)
		}
	}
	return v, nil
}

// NumOutcomes is the number of labels in the outcome table.
func (v *Vocabulary) NumOutcomes() int {
	return len(v.Outcomes) - 1
}

// NumColumns is the number of label matrix columns before flattening.
func (v *Vocabulary) NumColumns() int {
	if v.Kind == SingleLabel {
		return 1
	}
	return len(v.Tasks)
}

// Outcome returns the label string for a 1-based integer code.
func (v *Vocabulary) Outcome(code int) (string, error) {
	if code < 1 || code >= len(v.Outcomes) {
		return "", &IndexOutOfRangeError{Index: code, Length: v.NumOutcomes()}
	}
	return v.Outcomes[code], nil
}

func kindOf(label string) LabelKind {
	if !strings.Contains(label, TaskSeparator) && !strings.Contains(label, ValueSeparator) {
		return SingleLabel
	}
	return CompositeLabel
}

type taskEntry struct {
	task  string
	value string
}

func splitComposite(label string) ([]taskEntry, *FormatError) {
	segments := strings.Split(label, TaskSeparator)
	entries := make([]taskEntry, len(segments))
	for i, segment := range segments {
		parts := strings.Split(segment, ValueSeparator)
		if len(parts) != 2 || parts[0] == "" {
			return nil, &FormatError{Input: label, Reason: fmt.Sprintf("task entry %q is not of the form task=value", segment)}
		}
		entries[i] = taskEntry{task: parts[0], value: parts[1]}
	}
	return entries, nil
}

// TaskColumn returns the label matrix column of a task.
func (v *Vocabulary) TaskColumn(task string) (int, bool) {
	for i, t := range v.Tasks {
		if t == task {
			return i, true
		}
	}
	return 0, false
}

// OutcomeCode returns the 1-based integer code of a label string.
func (v *Vocabulary) OutcomeCode(label string) (int, bool) {
	for code := 1; code < len(v.Outcomes); code++ {
		if v.Outcomes[code] == label {
			return code, true
		}
	}
	return 0, false
}

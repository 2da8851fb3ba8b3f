package model

import (
	"fmt"
	"strings"
)

// Label is an encoded label. For SingleLabel the opaque label string is kept
// in Value; for CompositeLabel Codes holds one code per task entry, in the
// order the entries appear in the label string, and Tasks the matching task
// names.
type Label struct {
	Kind  LabelKind
	Value string
	Tasks []string
	Codes []int
}

// Encode converts a label string into per-task codes.
func (v *Vocabulary) Encode(label string) (Label, error) {
	segments := strings.Split(label, TaskSeparator)
	if len(segments) == 1 && !strings.Contains(label, ValueSeparator) {
		return Label{Kind: SingleLabel, Value: label}, nil
	}

	entries, ferr := splitComposite(label)
	if ferr != nil {
		return Label{}, ferr
	}
	tasks := make([]string, len(entries))
	codes := make([]int, len(entries))
	for i, e := range entries {
		values, ok := v.Values[e.task]
		if !ok {
			return Label{}, &FormatError{Input: label, Reason: fmt.Sprintf("unknown task %s", e.task)}
		}
		code, ok := values.ContainsName(e.value)
		if !ok {
			return Label{}, &FormatError{Input: label, Reason: fmt.Sprintf("unknown value %s for task %s", e.value, e.task)}
		}
		tasks[i] = e.task
		codes[i] = code
	}
	return Label{Kind: CompositeLabel, Tasks: tasks, Codes: codes}, nil
}

// Decode converts per-task codes back into a label string. For a single label
// vocabulary codes[0] is the 0-based outcome index.
func (v *Vocabulary) Decode(codes []int) (string, error) {
	if v.Kind == SingleLabel {
		if len(codes) != 1 {
			return "", fmt.Errorf("single label decode expects 1 code, got %d", len(codes))
		}
		return v.Outcome(codes[0] + 1)
	}

	if len(codes) != len(v.Tasks) {
		return "", fmt.Errorf("composite label decode expects %d codes, got %d", len(v.Tasks), len(codes))
	}
	var sb strings.Builder
	for i, task := range v.Tasks {
		values := v.Values[task]
		value, ok := values.NameFor(codes[i])
		if !ok {
			return "", &IndexOutOfRangeError{Index: codes[i], Length: values.Size()}
		}
		if i > 0 {
			sb.WriteString(TaskSeparator)
		}
		sb.WriteString(task)
		sb.WriteString(ValueSeparator)
		sb.WriteString(value)
	}
	return sb.String(), nil
}

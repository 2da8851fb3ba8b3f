package model

// NameMap implements a bidirectional mapping between a name and an index.
// Indexes are dense and assigned in insertion order.
type NameMap struct {
	NameToIndex map[string]int `json:"name_to_index"`
	IndexToName []string       `json:"index_to_name"`
}

func NewNameMap() *NameMap {
	return &NameMap{
		NameToIndex: map[string]int{},
	}
}

// ValueFor returns the index of name, assigning the next free index if name is new.
func (f *NameMap) ValueFor(name string) int {
	index, ok := f.NameToIndex[name]
	if !ok {
		index = len(f.IndexToName)
		f.NameToIndex[name] = index
		f.IndexToName = append(f.IndexToName, name)
	}
	return index
}

func (f *NameMap) Size() int {
	return len(f.IndexToName)
}

func (f *NameMap) ContainsName(name string) (int, bool) {
	index, ok := f.NameToIndex[name]
	return index, ok
}

func (f *NameMap) NameFor(index int) (string, bool) {
	if index < 0 || index >= len(f.IndexToName) {
		return "", false
	}
	return f.IndexToName[index], true
}

// Metadata holds everything needed to turn raw dataset rows into network
// inputs and network outputs back into label strings. It is built once from a
// training directory and persisted next to the network weights.
type Metadata struct {
	// Vocabulary maps label strings to per-task codes and back
	Vocabulary *Vocabulary `json:"vocabulary"`

	// Offsets maps task columns to blocks of the flattened output layer
	Offsets OffsetTable `json:"offsets"`

	// NumFeatures is the dense feature dimensionality (the highest 1-based feature index seen at training time)
	NumFeatures int `json:"num_features"`
}

func NewMetadata(vocabulary *Vocabulary) *Metadata {
	return &Metadata{Vocabulary: vocabulary}
}

func (d *Metadata) FeatureCount() int {
	return d.NumFeatures
}

func (d *Metadata) OutputCount() int {
	return d.Offsets.Width()
}

// DecodeOutputs maps one row of output layer activations to a label string.
func (d *Metadata) DecodeOutputs(outputs []float64) (string, error) {
	return d.Vocabulary.Decode(d.Offsets.Unflatten(outputs))
}

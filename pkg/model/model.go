package model

type Model struct {
	MetaData *Metadata
	Network  *Network
}

// Predict decodes the label string for one dense feature vector.
func (m *Model) Predict(features []float64) (string, error) {
	return m.MetaData.DecodeOutputs(m.Network.Predict(features))
}

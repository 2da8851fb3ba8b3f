package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/snappy"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/nn/linear"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mtlnet/pkg/model"
)

const (
	ModelDescriptorFile = "model_0.json"
	ModelWeightsFile    = "model_0.weights"
)

type DataParameters struct {
	// Dir contains the outcome lookup table and the libsvm data file
	Dir string
}

// Data holds the dense matrices of a dataset. Row i of every matrix is line
// i of the data file.
type Data struct {
	Features *mat.Dense

	// TaskLabels has one column per task holding the task value code. For
	// single label data it has one column with the 0-based outcome index.
	TaskLabels *mat.Dense

	// Labels is TaskLabels after flattening, one column per output unit
	Labels *mat.Dense
}

func (d *Data) Size() int {
	rows, _ := d.Features.Dims()
	return rows
}

// LoadData reads a dataset directory. With a nil metaData the vocabulary, the
// offset table and the feature count are derived from the directory;
// otherwise the given metadata is applied as is and the directory's lookup
// table only serves to map integer codes to label strings.
func LoadData(p DataParameters, metaData *model.Metadata) (*model.Metadata, *Data, error) {
	outcomes, order, err := ReadOutcomes(p.Dir)
	if err != nil {
		return nil, nil, err
	}

	newMetadata := false
	if metaData == nil {
		vocabulary, err := model.NewVocabulary(outcomes, order)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error building vocabulary from %s", filepath.Join(p.Dir, OutcomeLookupFile))
		}
		// one outcome would yield a width 1 block, which decodes as a binary head
		if vocabulary.Kind == model.SingleLabel && vocabulary.NumOutcomes() < 2 {
			return nil, nil, errors.Wrapf(&model.DegenerateColumnError{Column: 0}, "%s has a single outcome", filepath.Join(p.Dir, OutcomeLookupFile))
		}
		metaData = model.NewMetadata(vocabulary)
		newMetadata = true
	}

	dataPath := filepath.Join(p.Dir, TrainingDataFile)
	dims, err := scanFile(dataPath)
	if err != nil {
		return nil, nil, err
	}
	if dims.Rows == 0 {
		return nil, nil, errors.Errorf("no data in %s", dataPath)
	}
	if newMetadata {
		metaData.NumFeatures = dims.Features
	}
	if metaData.NumFeatures == 0 {
		return nil, nil, errors.Errorf("no features in %s", dataPath)
	}

	data, err := materializeFile(dataPath, dims, metaData, outcomes, newMetadata)
	if err != nil {
		return nil, nil, err
	}

	if newMetadata {
		if metaData.Vocabulary.Kind == model.SingleLabel {
			metaData.Offsets = model.OffsetTable{0, metaData.Vocabulary.NumOutcomes()}
		} else {
			_, metaData.Offsets, err = model.Flatten(data.TaskLabels)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "error flattening labels of %s", dataPath)
			}
		}
	}
	data.Labels, err = model.FlattenWith(data.TaskLabels, metaData.Offsets)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error flattening labels of %s", dataPath)
	}

	return metaData, data, nil
}

func scanFile(path string) (Dimensions, error) {
	file, err := openFile(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer file.Close()

	dims, err := ScanDimensions(file)
	if err != nil {
		return Dimensions{}, errors.Wrapf(err, "error scanning %s", path)
	}
	return dims, nil
}

// materializeFile fills the feature and task label matrices. ownTable tells
// that the vocabulary was built from outcomes, so single label codes map to
// their column values directly.
func materializeFile(path string, dims Dimensions, metaData *model.Metadata, outcomes []string, ownTable bool) (*Data, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vocabulary := metaData.Vocabulary
	data := &Data{
		Features:   mat.NewDense(dims.Rows, metaData.NumFeatures, nil),
		TaskLabels: mat.NewDense(dims.Rows, vocabulary.NumColumns(), nil),
	}

	err = forEachRecord(file, func(row int, record SparseRecord) error {
		if row >= dims.Rows {
			return errors.Errorf("%s grew after it was scanned", path)
		}
		if err := materializeInto(data.Features.RawRowView(row), record.Features); err != nil {
			return err
		}

		code, err := strconv.Atoi(record.Label)
		if err != nil {
			return &model.FormatError{Input: record.Label, Reason: "label must be an integer outcome code"}
		}
		if code < 1 || code >= len(outcomes) {
			return &model.IndexOutOfRangeError{Index: code, Length: len(outcomes) - 1}
		}
		if ownTable && vocabulary.Kind == model.SingleLabel {
			data.TaskLabels.Set(row, 0, float64(code-1))
			return nil
		}
		return setTaskLabels(data.TaskLabels, row, vocabulary, outcomes[code])
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return data, nil
}

func setTaskLabels(taskLabels *mat.Dense, row int, vocabulary *model.Vocabulary, labelString string) error {
	if vocabulary.Kind == model.SingleLabel {
		code, ok := vocabulary.OutcomeCode(labelString)
		if !ok {
			return &model.FormatError{Input: labelString, Reason: "unknown outcome"}
		}
		taskLabels.Set(row, 0, float64(code-1))
		return nil
	}

	label, err := vocabulary.Encode(labelString)
	if err != nil {
		return err
	}
	if label.Kind != model.CompositeLabel || len(label.Codes) != len(vocabulary.Tasks) {
		return &model.FormatError{Input: labelString, Reason: "label does not carry a value for every task"}
	}
	seen := make([]bool, len(vocabulary.Tasks))
	for i, task := range label.Tasks {
		column, _ := vocabulary.TaskColumn(task)
		if seen[column] {
			return &model.FormatError{Input: labelString, Reason: "task " + task + " appears twice"}
		}
		seen[column] = true
		taskLabels.Set(row, column, float64(label.Codes[i]))
	}
	return nil
}

type modelDescriptor struct {
	Network  model.NetworkConfig `json:"network"`
	MetaData *model.Metadata     `json:"metadata"`
}

// SaveModel writes the model descriptor and weights into dir and returns the
// number of bytes written.
func SaveModel(m *model.Model, dir string) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "error creating model directory %s", dir)
	}

	descriptor, err := json.MarshalIndent(modelDescriptor{Network: m.Network.NetworkConfig, MetaData: m.MetaData}, "", "  ")
	if err != nil {
		return 0, errors.Wrap(err, "error encoding model descriptor")
	}
	descriptorPath := filepath.Join(dir, ModelDescriptorFile)
	if err := os.WriteFile(descriptorPath, descriptor, 0o644); err != nil {
		return 0, errors.Wrapf(err, "error writing %s", descriptorPath)
	}

	weightsPath := filepath.Join(dir, ModelWeightsFile)
	weightsFile, err := os.Create(weightsPath)
	if err != nil {
		return 0, errors.Wrapf(err, "error creating %s", weightsPath)
	}
	defer weightsFile.Close()
	if err := EncodeWeights(m.Network, weightsFile); err != nil {
		return 0, errors.Wrapf(err, "error writing %s", weightsPath)
	}
	info, err := weightsFile.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "error writing %s", weightsPath)
	}
	return int64(len(descriptor)) + info.Size(), nil
}

// LoadModel reads a model saved by SaveModel.
func LoadModel(dir string) (*model.Model, error) {
	descriptorPath := filepath.Join(dir, ModelDescriptorFile)
	descriptorFile, err := openFile(descriptorPath)
	if err != nil {
		return nil, err
	}
	defer descriptorFile.Close()

	var descriptor modelDescriptor
	if err := json.NewDecoder(descriptorFile).Decode(&descriptor); err != nil {
		return nil, errors.Wrapf(err, "error decoding %s", descriptorPath)
	}
	if descriptor.MetaData == nil || descriptor.MetaData.Vocabulary == nil {
		return nil, errors.Errorf("%s has no metadata", descriptorPath)
	}

	weightsPath := filepath.Join(dir, ModelWeightsFile)
	weightsFile, err := openFile(weightsPath)
	if err != nil {
		return nil, err
	}
	defer weightsFile.Close()

	network := &model.Network{NetworkConfig: descriptor.Network}
	if err := DecodeWeights(network, weightsFile); err != nil {
		return nil, errors.Wrapf(err, "error decoding %s", weightsPath)
	}
	return &model.Model{MetaData: descriptor.MetaData, Network: network}, nil
}

// EncodeWeights writes the network layers as a snappy compressed gob stream.
// Optimizer state attached to the parameters is dropped.
func EncodeWeights(network *model.Network, writer io.Writer) error {
	nn.ForEachParam(network, func(param *nn.Param) {
		param.State = nil
	})
	compressed := snappy.NewBufferedWriter(writer)
	if err := nn.Dump(network.Layers, compressed); err != nil {
		return errors.Wrap(err, "error encoding weights")
	}
	return errors.Wrap(compressed.Close(), "error flushing weights")
}

// DecodeWeights reads layers written by EncodeWeights into network and checks
// them against its configuration.
func DecodeWeights(network *model.Network, input io.Reader) error {
	layers, err := nn.Load[[]*linear.Model](snappy.NewReader(input))
	if err != nil {
		return errors.Wrap(err, "error decoding weights")
	}
	network.Layers = layers
	return network.Validate()
}

package io

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DataSet iterates over row batches of a Data value.
type DataSet struct {
	Data         *Data
	BatchSize    int
	Rand         *rand.Rand
	dataIndices  []int
	currentOrder []int
	currentIndex int
}

type DatasetOrder int

const (
	OriginalOrder DatasetOrder = iota
	RandomOrder
)

func NewDataSet(data *Data, batchSize int, rnd *rand.Rand) *DataSet {
	dataIndices := make([]int, data.Size())
	for i := range dataIndices {
		dataIndices[i] = i
	}
	return NewDataSetSplit(data, batchSize, rnd, dataIndices)
}

func NewDataSetSplit(data *Data, batchSize int, rnd *rand.Rand, indices []int) *DataSet {
	ds := &DataSet{Data: data, BatchSize: batchSize, Rand: rnd, dataIndices: indices}
	ds.ResetOrder(OriginalOrder)
	return ds
}

func (d *DataSet) ResetOrder(order DatasetOrder) {
	if d.currentOrder == nil {
		d.currentOrder = make([]int, len(d.dataIndices))
	}
	switch order {
	case OriginalOrder:
		copy(d.currentOrder, d.dataIndices)
	case RandomOrder:
		for i, j := range d.Rand.Perm(len(d.currentOrder)) {
			d.currentOrder[i] = d.dataIndices[j]
		}
	}
	d.currentIndex = 0
}

// Next returns the row indices of the next batch, or nil once the current
// order is exhausted.
func (d *DataSet) Next() []int {
	if d.currentIndex >= len(d.currentOrder) {
		return nil
	}
	end := d.currentIndex + d.BatchSize
	if end > len(d.currentOrder) {
		end = len(d.currentOrder)
	}
	batch := d.currentOrder[d.currentIndex:end]
	d.currentIndex = end
	return batch
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

// Batch gathers the feature and flattened label rows of a batch into new matrices.
func (d *DataSet) Batch(rows []int) (features, labels *mat.Dense) {
	_, featureCount := d.Data.Features.Dims()
	_, labelCount := d.Data.Labels.Dims()
	features = mat.NewDense(len(rows), featureCount, nil)
	labels = mat.NewDense(len(rows), labelCount, nil)
	for i, row := range rows {
		features.SetRow(i, d.Data.Features.RawRowView(row))
		labels.SetRow(i, d.Data.Labels.RawRowView(row))
	}
	return features, labels
}

// RandomSplit shuffles the rows and partitions them into data sets of the given sizes.
func (d *DataSet) RandomSplit(sizes ...int) []*DataSet {
	indices := make([]int, len(d.dataIndices))
	copy(indices, d.dataIndices)
	d.Rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	splits := make([]*DataSet, len(sizes))
	idx := 0
	for i := range sizes {
		splitIndices := make([]int, sizes[i])
		copy(splitIndices, indices[idx:idx+sizes[i]])
		idx += sizes[i]
		splits[i] = NewDataSetSplit(d.Data, d.BatchSize, d.Rand, splitIndices)
	}
	return splits
}

package pkg

import (
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/mat"
	srand "github.com/nlpodyssey/spago/mat/rand"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/optimizers"
	"github.com/nlpodyssey/spago/optimizers/adam"
	"github.com/nlpodyssey/spago/optimizers/gradclipper"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"mtlnet/pkg/io"
	"mtlnet/pkg/model"
)

type TrainingParameters struct {
	BatchSize          int
	NumEpochs          int
	LearningRate       float64
	ReportInterval     int
	RndSeed            int64
	ValidationFraction float64
	LossPlotFile       string
}

// GradientClipThreshold bounds every gradient component during training.
const GradientClipThreshold = 2000.0

type Trainer struct {
	params    TrainingParameters
	updater   *adam.Adam
	optimizer *optimizers.Optimizer
	clipper   gradclipper.GradClipper
	network   *model.Network
}

// EpochLoss is the mean loss of one epoch. Validation is 0 when no holdout is used.
type EpochLoss struct {
	Epoch      int
	Train      float64
	Validation float64
}

func NewTrainer(network *model.Network, params TrainingParameters) *Trainer {
	updaterConfig := adam.NewDefaultConfig()
	updaterConfig.StepSize = params.LearningRate
	updater := adam.New(updaterConfig)
	return &Trainer{
		params:    params,
		updater:   updater,
		optimizer: optimizers.New(nn.Parameters(network), updater),
		clipper:   &gradclipper.ValueClipper{Value: GradientClipThreshold},
		network:   network,
	}
}

// Train fits a network on the dataset in dataDir and saves it into outputDir.
func Train(dataDir, outputDir string, config model.NetworkConfig, params TrainingParameters) error {
	if params.BatchSize < 1 {
		return errors.Errorf("invalid batch size %d", params.BatchSize)
	}
	metaData, data, err := io.LoadData(io.DataParameters{Dir: dataDir}, nil)
	if err != nil {
		return errors.Wrap(err, "error reading training data")
	}
	log.Info().
		Int("examples", data.Size()).
		Int("features", metaData.FeatureCount()).
		Int("outputs", metaData.OutputCount()).
		Str("labels", metaData.Vocabulary.Kind.String()).
		Ints("offsets", metaData.Offsets).
		Msg("Loaded training data")

	//Overwrite values that are only known after parsing the dataset
	config.InputDimension = metaData.FeatureCount()
	config.OutputBlocks = metaData.Offsets.Blocks()

	network, err := model.NewNetwork(config)
	if err != nil {
		return errors.Wrap(err, "error creating network")
	}
	network.Init(srand.NewLockedRand(uint64(params.RndSeed)))

	rnd := rand.New(rand.NewSource(params.RndSeed))
	train, validation := splitData(data, params, rnd)
	losses, err := NewTrainer(network, params).Run(train, validation)
	if err != nil {
		return errors.Wrap(err, "error training network")
	}

	m := &model.Model{MetaData: metaData, Network: network}
	size, err := io.SaveModel(m, outputDir)
	if err != nil {
		return errors.Wrapf(err, "error saving model to %s", outputDir)
	}
	log.Info().Str("dir", outputDir).Str("size", humanize.Bytes(uint64(size))).Msg("Saved model")

	if params.LossPlotFile != "" {
		if err := plotLosses(losses, params.LossPlotFile); err != nil {
			return errors.Wrapf(err, "error plotting losses to %s", params.LossPlotFile)
		}
	}

	_, err = testInternal(m, data, "")
	return err
}

func splitData(data *io.Data, params TrainingParameters, rnd *rand.Rand) (*io.DataSet, *io.DataSet) {
	all := io.NewDataSet(data, params.BatchSize, rnd)
	holdout := int(float64(all.Size()) * params.ValidationFraction)
	if holdout <= 0 || holdout >= all.Size() {
		return all, nil
	}
	splits := all.RandomSplit(all.Size()-holdout, holdout)
	log.Info().Int("train", splits[0].Size()).Int("validation", splits[1].Size()).Msg("Split training data")
	return splits[0], splits[1]
}

// Run trains for the configured number of epochs and returns the loss of each epoch.
func (t *Trainer) Run(train, validation *io.DataSet) ([]EpochLoss, error) {
	losses := make([]EpochLoss, 0, t.params.NumEpochs)
	for epoch := 0; epoch < t.params.NumEpochs; epoch++ {
		train.ResetOrder(io.RandomOrder)
		var batchLosses, batchSizes []float64
		for i, rows := 0, train.Next(); rows != nil; i, rows = i+1, train.Next() {
			loss, err := t.trainBatch(train, rows)
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d batch %d", epoch, i)
			}
			batchLosses = append(batchLosses, loss)
			batchSizes = append(batchSizes, float64(len(rows)))
			if t.params.ReportInterval > 0 && i%t.params.ReportInterval == 0 {
				log.Debug().Int("epoch", epoch).Int("batch", i).Float64("loss", loss).Msg("")
			}
		}

		result := EpochLoss{Epoch: epoch, Train: stat.Mean(batchLosses, batchSizes)}
		event := log.Info().Int("epoch", epoch).Float64("loss", result.Train)
		if validation != nil {
			result.Validation = t.Loss(validation)
			event = event.Float64("validation_loss", result.Validation)
		}
		event.Msg("")
		losses = append(losses, result)
	}
	return losses, nil
}

// trainBatch takes one optimizer step on the mean loss of the batch.
func (t *Trainer) trainBatch(ds *io.DataSet, rows []int) (float64, error) {
	features, labels := ds.Batch(rows)
	var loss mat.Tensor
	for i := range rows {
		loss = ag.Add(loss, t.network.Loss(features.RawRowView(i), labels.RawRowView(i)))
	}
	loss = ag.DivScalar(loss, mat.Scalar(float64(len(rows))))

	if err := ag.Backward(loss); err != nil {
		return 0, err
	}
	t.clipper.ClipGrads(nn.Parameters(t.network))
	if err := t.optimizer.Optimize(); err != nil {
		return 0, err
	}
	t.updater.IncExample()
	return loss.Item().F64(), nil
}

// Loss is the mean loss of the network over a data set, without updating it.
func (t *Trainer) Loss(ds *io.DataSet) float64 {
	ds.ResetOrder(io.OriginalOrder)
	total := 0.0
	for rows := ds.Next(); rows != nil; rows = ds.Next() {
		features, labels := ds.Batch(rows)
		total += batchLoss(t.network, features.RawRowView, labels.RawRowView, len(rows))
	}
	if ds.Size() == 0 {
		return 0
	}
	return total / float64(ds.Size())
}

// batchLoss sums the loss values of the first n rows without backpropagating.
func batchLoss(network *model.Network, features, labels func(int) []float64, n int) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		total += network.Loss(features(i), labels(i)).Item().F64()
	}
	return total
}

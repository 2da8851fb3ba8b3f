package pkg

import (
	"fmt"
	gio "io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"mtlnet/pkg/io"
	"mtlnet/pkg/model"
)

const evaluationBatchSize = 64

// Test evaluates the model saved in modelDir on the labelled dataset in dataDir.
func Test(modelDir, dataDir, outputFileName string) error {
	m, err := io.LoadModel(modelDir)
	if err != nil {
		return errors.Wrapf(err, "error loading model from %s", modelDir)
	}

	_, data, err := io.LoadData(io.DataParameters{Dir: dataDir}, m.MetaData)
	if err != nil {
		return errors.Wrapf(err, "error loading data from %s", dataDir)
	}
	_, err = testInternal(m, data, outputFileName)
	return err
}

// ClassMetrics counts the outcomes of the predictions for one class.
type ClassMetrics struct {
	TruePos  int
	FalsePos int
	TrueNeg  int
	FalseNeg int
}

func (c *ClassMetrics) Precision() float64 {
	if c.TruePos+c.FalsePos == 0 {
		return 0
	}
	return float64(c.TruePos) / float64(c.TruePos+c.FalsePos)
}

func (c *ClassMetrics) Recall() float64 {
	if c.TruePos+c.FalseNeg == 0 {
		return 0
	}
	return float64(c.TruePos) / float64(c.TruePos+c.FalseNeg)
}

func (c *ClassMetrics) F1Score() float64 {
	precision, recall := c.Precision(), c.Recall()
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

type evaluator struct {
	model        *model.Model
	metrics      map[string]*ClassMetrics
	outputWriter gio.Writer

	predictionCount int
	exactMatches    int
	loss            float64
}

func newEvaluator(m *model.Model, outputWriter gio.Writer) *evaluator {
	return &evaluator{
		model:        m,
		metrics:      map[string]*ClassMetrics{},
		outputWriter: outputWriter,
	}
}

// EvaluatePrediction compares the head probabilities of one example with its
// task labels.
func (e *evaluator) EvaluatePrediction(probs []float64, taskLabels []float64) error {
	vocabulary := e.model.MetaData.Vocabulary
	predicted := e.model.MetaData.Offsets.Unflatten(probs)
	gold := make([]int, len(taskLabels))
	for i, v := range taskLabels {
		gold[i] = int(v)
	}

	goldLabel, err := vocabulary.Decode(gold)
	if err != nil {
		return errors.Wrap(err, "error decoding gold label")
	}
	predictedLabel, err := vocabulary.Decode(predicted)
	if err != nil {
		return errors.Wrap(err, "error decoding prediction")
	}
	fmt.Fprintf(e.outputWriter, "%s,%s\n", goldLabel, predictedLabel)

	e.predictionCount++
	if goldLabel == predictedLabel {
		e.exactMatches++
	}

	for column := range gold {
		goldClass := className(vocabulary, column, gold[column])
		predictedClass := className(vocabulary, column, predicted[column])
		if goldClass == predictedClass {
			e.classMetrics(goldClass).TruePos++
		} else {
			e.classMetrics(goldClass).FalseNeg++
			e.classMetrics(predictedClass).FalsePos++
		}
	}
	return nil
}

// countTrueNegatives fills TrueNeg. Each prediction has exactly one gold and
// one predicted class per column, so a class is a true negative of every
// prediction it took no part in.
func (e *evaluator) countTrueNegatives() {
	for _, metrics := range e.metrics {
		metrics.TrueNeg = e.predictionCount - metrics.TruePos - metrics.FalsePos - metrics.FalseNeg
	}
}

func (e *evaluator) classMetrics(class string) *ClassMetrics {
	metrics, ok := e.metrics[class]
	if !ok {
		metrics = &ClassMetrics{}
		e.metrics[class] = metrics
	}
	return metrics
}

// className names the class of a code in a label column: `task=value` for
// composite labels, the outcome label for single labels.
func className(vocabulary *model.Vocabulary, column, code int) string {
	if vocabulary.Kind == model.SingleLabel {
		if label, err := vocabulary.Outcome(code + 1); err == nil {
			return label
		}
		return fmt.Sprintf("#%d", code)
	}
	task := vocabulary.Tasks[column]
	value, ok := vocabulary.Values[task].NameFor(code)
	if !ok {
		value = fmt.Sprintf("#%d", code)
	}
	return task + model.ValueSeparator + value
}

func (e *evaluator) Accuracy() float64 {
	if e.predictionCount == 0 {
		return 0
	}
	return float64(e.exactMatches) / float64(e.predictionCount)
}

func (e *evaluator) Loss() float64 {
	if e.predictionCount == 0 {
		return 0
	}
	return e.loss / float64(e.predictionCount)
}

func (e *evaluator) LogMetrics() {
	// Sort class names for deterministic output
	for _, class := range sortClasses(e.metrics) {
		result := e.metrics[class]
		log.Info().Str("Class", class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("TN", result.TrueNeg).
			Int("FN", result.FalseNeg).
			Float64("Precision", result.Precision()).
			Float64("Recall", result.Recall()).
			Float64("F1", result.F1Score()).
			Msg("")
	}

	microF1, macroF1 := computeOverallF1(e.metrics)
	log.Info().
		Float64("MacroF1", macroF1).
		Float64("MicroF1", microF1).
		Float64("Accuracy", e.Accuracy()).
		Float64("Loss", e.Loss()).
		Msg("")
}

func testInternal(m *model.Model, data *io.Data, outputFileName string) (*evaluator, error) {
	outputWriter := gio.Discard
	if outputFileName != "" {
		outputFile, err := os.Create(outputFileName)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening output file %s", outputFileName)
		}
		defer outputFile.Close()
		outputWriter = outputFile
	}

	e := newEvaluator(m, outputWriter)
	ds := io.NewDataSet(data, evaluationBatchSize, nil)
	for rows := ds.Next(); rows != nil; rows = ds.Next() {
		features, labels := ds.Batch(rows)
		e.loss += batchLoss(m.Network, features.RawRowView, labels.RawRowView, len(rows))
		for i, row := range rows {
			probs := m.Network.Predict(features.RawRowView(i))
			if err := e.EvaluatePrediction(probs, data.TaskLabels.RawRowView(row)); err != nil {
				return nil, errors.Wrapf(err, "row %d", row)
			}
		}
	}
	e.countTrueNegatives()
	e.LogMetrics()
	return e, nil
}

func computeOverallF1(metrics map[string]*ClassMetrics) (float64, float64) {
	macroF1 := 0.0
	for _, metric := range metrics {
		macroF1 += metric.F1Score()
	}
	if len(metrics) > 0 {
		macroF1 /= float64(len(metrics))
	}

	micro := &ClassMetrics{}
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
		micro.TrueNeg += result.TrueNeg
	}
	return micro.F1Score(), macroF1
}

func sortClasses(metrics map[string]*ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}

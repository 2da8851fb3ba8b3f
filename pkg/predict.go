package pkg

import (
	"bufio"
	"context"
	"fmt"
	gio "io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"mtlnet/pkg/io"
	"mtlnet/pkg/model"
)

// Predict loads the model in modelDir and writes one label per feature line
// read from input. It stops at end of input, at the first empty line or when
// ctx is cancelled; a malformed line aborts with an error.
func Predict(ctx context.Context, modelDir string, input gio.Reader, output gio.Writer) error {
	m, err := io.LoadModel(modelDir)
	if err != nil {
		return errors.Wrapf(err, "error loading model from %s", modelDir)
	}
	log.Debug().Str("dir", modelDir).Int("features", m.MetaData.FeatureCount()).Msg("Loaded model")

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(input, done)

	writer := bufio.NewWriter(output)
	for count := 1; ; count++ {
		select {
		case <-ctx.Done():
			log.Info().Msg("Interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				return errors.Wrap(<-readErr, "error reading input")
			}
			if strings.TrimSpace(line) == "" {
				return nil
			}
			label, err := predictLine(m, line)
			if err != nil {
				return errors.Wrapf(err, "input line %d", count)
			}
			fmt.Fprintln(writer, label)
			if err := writer.Flush(); err != nil {
				return errors.Wrap(err, "error writing prediction")
			}
		}
	}
}

func predictLine(m *model.Model, line string) (string, error) {
	features, err := io.ParseFeatures(line)
	if err != nil {
		return "", err
	}
	dense, err := io.Materialize(features, m.MetaData.FeatureCount())
	if err != nil {
		return "", err
	}
	return m.Predict(dense)
}

// readLines feeds the lines of input into the returned channel until input
// is exhausted or done is closed. The read error, if any, is delivered once
// the line channel is closed.
func readLines(input gio.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 64*1024), io.MaxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

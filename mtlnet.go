package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mtlnet/pkg"
	"mtlnet/pkg/model"
)

func TrainCommand() *cobra.Command {

	var outputDir string
	var trainingParameters pkg.TrainingParameters
	var networkConfig model.NetworkConfig

	var cmd = &cobra.Command{
		Use:   "train <dataset-dir>",
		Short: "Trains a new model on the libsvm dataset in the given directory and saves it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if outputDir == "" {
				outputDir = args[0]
			}
			return pkg.Train(args[0], outputDir, networkConfig, trainingParameters)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory to save the model to (defaults to the dataset directory)")
	cmd.Flags().IntVarP(&trainingParameters.BatchSize, "batch-size", "b", 16, "batch size")
	cmd.Flags().Float64VarP(&trainingParameters.LearningRate, "learning-rate", "l", 0.01, "learning rate")
	cmd.Flags().IntVarP(&trainingParameters.ReportInterval, "report-interval", "r", 10, "loss report interval (in batches, logged at debug level)")
	cmd.Flags().IntVarP(&trainingParameters.NumEpochs, "num-epochs", "n", 20, "number of epochs to train")
	cmd.Flags().Int64VarP(&trainingParameters.RndSeed, "random-seed", "x", 42, "random seed")
	cmd.Flags().Float64VarP(&trainingParameters.ValidationFraction, "validation-fraction", "v", 0.0, "fraction of the data held out to report validation loss")
	cmd.Flags().StringVarP(&trainingParameters.LossPlotFile, "loss-plot", "", "", "write a plot of the loss per epoch to this file (e.g. loss.png)")

	cmd.Flags().IntSliceVarP(&networkConfig.HiddenDimensions, "hidden-dimensions", "d", []int{64}, "sizes of the hidden layers")

	return cmd
}

func PredictCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "predict <model-dir>",
		Short: "Reads libsvm feature lines from stdin and writes one predicted label per line to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return pkg.Predict(ctx, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func TestCommand() *cobra.Command {
	var modelDir string
	var dataDir string
	var outputFile string

	var cmd = &cobra.Command{
		Use:   "test -m modelDir -d datasetDir [-o outputFile]",
		Short: "Runs the model on a labelled dataset, logs the metrics and optionally writes gold,predicted pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return pkg.Test(modelDir, dataDir, outputFile)
		},
	}

	cmd.Flags().StringVarP(&modelDir, "model", "m", "", "directory of the model to test")
	cmd.Flags().StringVarP(&dataDir, "data", "d", "", "dataset directory")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional)")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "mtlnet", PersistentPreRunE: setupLogging}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(TrainCommand())
	Main.AddCommand(PredictCommand())
	Main.AddCommand(TestCommand())

	if err := Main.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %q", logLevel)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	return nil
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			if _, err := v.Int64(); err == nil {
				return v.String()
			}
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}

package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"resumescore/internal/common"
	"resumescore/internal/errors"
	"resumescore/internal/model"
)

var trainCmd = &cobra.Command{
	Use:   "train [dataset.csv]",
	Short: "Fit the similarity artifacts from a labelled dataset",
	Long: `Fit the TF-IDF vectorizer and the match classifier from a CSV with
"Resume", "Job Description" and "Best Match" columns, then write both
artifacts to the configured model paths (or --vectorizer/--classifier).`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

var trainFlags struct {
	vectorizer  string
	classifier  string
	maxFeatures int
	iterations  int
}

func init() {
	trainCmd.Flags().StringVar(&trainFlags.vectorizer, "vectorizer", "", "Vectorizer output path (default from config)")
	trainCmd.Flags().StringVar(&trainFlags.classifier, "classifier", "", "Classifier output path (default from config)")
	trainCmd.Flags().IntVar(&trainFlags.maxFeatures, "max-features", 0, "Vocabulary size cap (default from config)")
	trainCmd.Flags().IntVar(&trainFlags.iterations, "iterations", 0, "Gradient descent iterations (default 500)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	vectorizerPath := firstNonEmpty(trainFlags.vectorizer, cfg.Model.VectorizerPath)
	classifierPath := firstNonEmpty(trainFlags.classifier, cfg.Model.ClassifierPath)

	opts := model.DefaultTrainOptions()
	if cfg.Model.MaxFeatures > 0 {
		opts.MaxFeatures = cfg.Model.MaxFeatures
	}
	if trainFlags.maxFeatures > 0 {
		opts.MaxFeatures = trainFlags.maxFeatures
	}
	if trainFlags.iterations > 0 {
		opts.Iterations = trainFlags.iterations
	}

	// datasets are often larger than the upload limit
	fp := common.NewFileProcessor(logger, 0)
	data, err := fp.ReadFile(args[0])
	if err != nil {
		return err
	}
	samples, err := model.ReadDataset(bytes.NewReader(data))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "Invalid training dataset", err)
	}

	logger.Info("Training model", "samples", len(samples), "max_features", opts.MaxFeatures)
	artifacts, report, err := model.Train(cmd.Context(), samples, opts)
	if err != nil {
		return errors.NewModelError(errors.ErrCodeTrainingFailed, "Training failed", err)
	}

	if err := model.SaveArtifacts(artifacts, vectorizerPath, classifierPath); err != nil {
		return err
	}

	logger.Info("Model artifacts written",
		"vectorizer", vectorizerPath,
		"classifier", classifierPath,
		"accuracy", report.Accuracy)
	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"Trained on %d samples (%d matches), %d features, training accuracy %.1f%%\nVectorizer: %s\nClassifier: %s\n",
		report.Samples, report.Positives, report.Features, report.Accuracy*100, vectorizerPath, classifierPath)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

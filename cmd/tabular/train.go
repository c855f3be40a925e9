package main

import (
	"github.com/spf13/cobra"

	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/pkg/log"
	"github.com/mlinsights/tabular/training"
)

type trainRequest struct {
	DatasetPath     string         `json:"dataset_path"`
	TargetColumn    string         `json:"target_column"`
	Algorithm       string         `json:"algorithm"`
	ProblemType     string         `json:"problem_type"`
	Hyperparameters map[string]any `json:"hyperparameters"`
	TrainTestSplit  float64        `json:"train_test_split"`
	ModelOutputPath string         `json:"model_output_path"`
}

type trainResponse struct {
	Success           bool                      `json:"success"`
	Metrics           any                       `json:"metrics"`
	FeatureImportance []training.ImportancePair `json:"feature_importance"`
	TrainingDuration  int                       `json:"training_duration"`
	ModelPath         string                    `json:"model_path"`
}

func newTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train <request.json | inline-json>",
		Short: "Train a model from a JSON request and save the artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			var req trainRequest
			if err := loadRequest(args[0], &req); err != nil {
				return fail(logger, err)
			}
			resp, err := runTrain(&req, logger)
			if err != nil {
				return fail(logger, err)
			}
			writeResponse(resp)
			return nil
		},
	}
}

func runTrain(req *trainRequest, logger log.Logger) (*trainResponse, error) {
	algorithm, err := training.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return nil, err
	}
	problem, err := training.ParseProblemType(req.ProblemType)
	if err != nil {
		return nil, err
	}
	if req.TargetColumn == "" {
		return nil, errors.NewConfigurationError("target_column", "must not be empty", req.TargetColumn)
	}
	if req.ModelOutputPath == "" {
		return nil, errors.NewConfigurationError("model_output_path", "must not be empty", req.ModelOutputPath)
	}
	if req.TrainTestSplit == 0 {
		req.TrainTestSplit = 0.8
	}

	// Configuration is checked before any data is read.
	trainer, err := training.NewTrainer(problem, algorithm, req.Hyperparameters, logger)
	if err != nil {
		return nil, err
	}

	table, err := dataset.ReadCSV(req.DatasetPath)
	if err != nil {
		return nil, err
	}
	X, y, err := table.SplitTarget(req.TargetColumn)
	if err != nil {
		return nil, err
	}
	stratify := problem == training.Classification
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, req.TrainTestSplit, stratify)
	if err != nil {
		return nil, err
	}

	result, bundle, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		return nil, err
	}
	if err := bundle.Save(req.ModelOutputPath); err != nil {
		return nil, err
	}

	return &trainResponse{
		Success:           true,
		Metrics:           result.Metrics,
		FeatureImportance: result.FeatureImportance,
		TrainingDuration:  int(result.Duration.Seconds()),
		ModelPath:         req.ModelOutputPath,
	}, nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/mlinsights/tabular/artifact"
	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/pkg/log"
	"github.com/mlinsights/tabular/predict"
)

type predictRequest struct {
	ModelPath     string `json:"model_path"`
	InputDataPath string `json:"input_data_path"`
	OutputPath    string `json:"output_path"`
}

type predictResponse struct {
	Success         bool   `json:"success"`
	PredictionCount int    `json:"prediction_count"`
	OutputPath      string `json:"output_path"`
}

func newPredictCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <request.json | inline-json>",
		Short: "Score a CSV file with a saved model artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			var req predictRequest
			if err := loadRequest(args[0], &req); err != nil {
				return fail(logger, err)
			}
			resp, err := runPredict(&req, logger)
			if err != nil {
				return fail(logger, err)
			}
			writeResponse(resp)
			return nil
		},
	}
}

func runPredict(req *predictRequest, logger log.Logger) (*predictResponse, error) {
	if req.OutputPath == "" {
		return nil, errors.NewConfigurationError("output_path", "must not be empty", req.OutputPath)
	}

	bundle, err := artifact.Load(req.ModelPath)
	if err != nil {
		return nil, err
	}
	input, err := dataset.ReadCSV(req.InputDataPath)
	if err != nil {
		return nil, err
	}

	predictions, out, err := predict.NewPredictor(logger).Predict(bundle, input)
	if err != nil {
		return nil, err
	}
	if err := out.WriteCSV(req.OutputPath); err != nil {
		return nil, err
	}

	return &predictResponse{
		Success:         true,
		PredictionCount: len(predictions),
		OutputPath:      req.OutputPath,
	}, nil
}

// Command tabular trains and scores tabular models from declarative JSON
// requests. Each subcommand reads one request, writes one JSON response to
// stdout, logs to stderr, and exits 0 on success or 1 on failure. The two
// subcommands coordinate only through the model artifact file.
package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/pkg/log"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "tabular",
		Short:         "Train and score tabular ML models from JSON requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newTrainCommand(), newPredictCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() log.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := log.NewZerolog(os.Stderr, level)
	errors.SetWarningHandler(func(w error) {
		logger.Warn(w.Error(), log.OperationKey, "warning")
	})
	return logger
}

// loadRequest decodes a request given either inline as a JSON object or as a
// path to a JSON file.
func loadRequest(arg string, req any) error {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		if data, err = os.ReadFile(arg); err != nil {
			return errors.NewPersistenceError("read request", arg, err)
		}
	}
	if err := json.Unmarshal(data, req); err != nil {
		return errors.NewConfigurationError("request", "invalid JSON", err.Error())
	}
	return nil
}

// writeResponse emits the response object as a single JSON document on
// stdout.
func writeResponse(resp any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		os.Exit(1)
	}
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// fail writes the failure response and returns the error so the process
// exits 1.
func fail(logger log.Logger, err error) error {
	logger.Error(err.Error())
	writeResponse(failureResponse{Success: false, Error: err.Error()})
	return err
}

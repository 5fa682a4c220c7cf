package common

import (
	"context"
	"time"

	"resumescore/internal/errors"
)

// OperationFunc produces the value a command prints.
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand validates the output target, runs op and writes its result in the
// configured format. The output file is checked first so a bad path fails before any work.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	handler *OutputHandler,
	cmdConfig CommandConfig,
	op OperationFunc[Output],
) error {
	if logger == nil {
		logger = errors.Discard()
	}
	if handler == nil {
		handler = NewOutputHandler(logger)
	}

	if err := handler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	start := time.Now()
	result, err := op(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Command finished", "duration", time.Since(start), "format", cmdConfig.OutputFormat)

	return handler.HandleOutput(result, cmdConfig)
}

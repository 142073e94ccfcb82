package common

import (
	"context"
	"fmt"

	"kandrai/internal/errors"
	"kandrai/internal/llm"
)

// CreateInputFunc builds the operation input from the document texts, in argument order.
type CreateInputFunc[Input any] func(texts []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is an operation that may call the model and report token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *llm.TokenUsage, error)

// CommandRunner carries the helpers shared by document-reading commands.
type CommandRunner struct {
	Files  *FileProcessor
	Output *OutputHandler
	Logger *errors.Logger
}

// NewCommandRunner creates a runner around files.
func NewCommandRunner(files *FileProcessor, logger *errors.Logger) *CommandRunner {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &CommandRunner{
		Files:  files,
		Output: NewOutputHandler(files, logger),
		Logger: logger,
	}
}

// RunAICommand reads paths, builds the input, runs the operation, reports token
// usage and writes the formatted result.
func RunAICommand[Input, Output any](
	ctx context.Context,
	runner *CommandRunner,
	cmdConfig CommandConfig,
	paths []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	texts, err := runner.Files.ReadDocuments(ctx, paths...)
	if err != nil {
		return err
	}

	input, err := createInput(texts)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	logDetails(input, cmdConfig)

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		runner.Logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return runner.Output.HandleOutput(result, cmdConfig)
}

package common

import (
	"context"
	"fmt"
	"os"

	"cvalign/internal/errors"
	"cvalign/internal/extract"
	"cvalign/internal/llm"
	"cvalign/internal/utils"
)

// DocumentInput carries the extracted CV text and the job text for an operation.
type DocumentInput struct {
	Filename string
	CVText   string
	JobText  string
}

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(input DocumentInput, cfg CommandConfig)

// LLMOperationFunc is a generic function signature for any model operation with context and token usage.
type LLMOperationFunc[Output any] func(context.Context, DocumentInput) (Output, *llm.TokenUsage, error)

// RunLLMCommand encapsulates the common logic for file-based CLI commands: it
// reads and extracts the CV document, reads the job text file, runs the model
// operation, reports token usage, and writes the formatted output.
func RunLLMCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	cvPath, jobPath string,
	operation LLMOperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	// Pass the logger when creating helpers
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	input, err := readDocumentInput(fileProcessor, cvPath, jobPath)
	if err != nil {
		return err
	}

	logDetails(input, cmdConfig)

	result, tokenUsage, err := operation(ctx, input)
	if err != nil {
		return err
	}

	// Report token usage
	if tokenUsage != nil {
		if logger != nil {
			logger.Info("Model token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "Model token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// readDocumentInput reads the CV document, extracts its text, and reads the job text file.
func readDocumentInput(fileProcessor *FileProcessor, cvPath, jobPath string) (DocumentInput, error) {
	if err := utils.ValidateInputFile(cvPath); err != nil {
		return DocumentInput{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", cvPath), err)
	}

	kind, err := extract.KindFromFilename(cvPath)
	if err != nil {
		return DocumentInput{}, err
	}

	data, err := fileProcessor.ReadDocument(cvPath)
	if err != nil {
		return DocumentInput{}, err
	}

	cvText, err := extract.Extract(data, kind)
	if err != nil {
		return DocumentInput{}, err
	}

	jobContents, err := fileProcessor.ValidateAndReadFiles(jobPath)
	if err != nil {
		return DocumentInput{}, err
	}

	return DocumentInput{
		Filename: cvPath,
		CVText:   cvText,
		JobText:  jobContents[0],
	}, nil
}

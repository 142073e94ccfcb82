package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kandrai/internal/errors"
	"kandrai/internal/extract"
	"kandrai/internal/utils"
)

// TextExtractor turns a named document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// FileProcessor reads CLI input documents and writes results
type FileProcessor struct {
	extractor TextExtractor
	maxBytes  int64
	logger    *errors.Logger
}

// NewFileProcessor creates a file processor. A nil extractor uses extract.New.
// maxBytes caps input files the same way the server caps request bodies.
func NewFileProcessor(extractor TextExtractor, maxBytes int64, logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if extractor == nil {
		extractor = extract.New(logger)
	}
	return &FileProcessor{extractor: extractor, maxBytes: maxBytes, logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// ReadDocument returns the plain text of filename. Markdown is read verbatim and
// .docx is converted locally; everything else goes through the extractor, so
// .pdf and .txt behave like uploads to POST /extract and unsupported types are
// rejected the same way.
func (fp *FileProcessor) ReadDocument(ctx context.Context, filename string) (string, error) {
	if err := utils.ValidateInputFile(filename, fp.maxBytes); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInputFile,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}

	fp.logger.Debug("Read input document",
		"filename", filename, "size", utils.FormatFileSize(int64(len(content))))

	switch {
	case utils.IsPlainText(filename):
		return strings.TrimSpace(strings.ToValidUTF8(string(content), "")), nil
	case extract.DetectFormat(filename) == extract.FormatDocx:
		return extract.ReadDocxText(content)
	}

	return fp.extractor.Extract(ctx, filepath.Base(filename), content)
}

// ReadDocuments reads every named document in order. An empty name yields an
// empty text, which the analysis treats as a missing input.
func (fp *FileProcessor) ReadDocuments(ctx context.Context, filenames ...string) ([]string, error) {
	texts := make([]string, len(filenames))

	for i, filename := range filenames {
		if filename == "" {
			continue
		}
		text, err := fp.ReadDocument(ctx, filename)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}

	return texts, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeFileWriteFailed,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidOutputFile,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}

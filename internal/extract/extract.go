package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"kandrai/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Messages returned to clients for rejected uploads.
const (
	MsgDocxOnFrontend = "DOCX extraction handled on frontend. Upload PDF or paste text."
	MsgUnsupported    = "Unsupported file. Use PDF/DOCX/TXT."
	MsgNoPDFText      = "No extractable text found in PDF. It may be a scanned image; paste the text instead."
	failedPrefix      = "Extract failed: "
)

// Format is the kind of document, decided by file name suffix only.
type Format string

const (
	FormatText        Format = "txt"
	FormatPDF         Format = "pdf"
	FormatDocx        Format = "docx"
	FormatUnsupported Format = ""
)

// DetectFormat maps a file name onto a Format, ignoring case.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".txt":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	default:
		return FormatUnsupported
	}
}

// PDFPagesFunc returns the plain text of every page, in order.
type PDFPagesFunc func(data []byte) ([]string, error)

// Extractor turns uploaded documents into plain text.
type Extractor struct {
	pdfPages PDFPagesFunc
	logger   *errors.Logger
}

// Option customizes an Extractor
type Option func(*Extractor)

// WithPDFPages replaces the PDF page reader
func WithPDFPages(fn PDFPagesFunc) Option {
	return func(e *Extractor) { e.pdfPages = fn }
}

// New creates an Extractor backed by the ledongthuc PDF reader.
func New(logger *errors.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	e := &Extractor{pdfPages: ReadPDFPages, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of data, dispatching on the suffix of filename.
// Rejections come back as validation or unprocessable errors; anything else,
// panics in the PDF parser included, becomes an internal "Extract failed" error.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (text string, err error) {
	tracer := otel.Tracer("kandrai.extract")
	_, span := tracer.Start(ctx, "extract.document")
	defer span.End()

	format := DetectFormat(filename)
	span.SetAttributes(
		attribute.String("extract.format", string(format)),
		attribute.Int("extract.size_bytes", len(data)),
	)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract.panic", "filename", filename, "panic", fmt.Sprint(r))
			err = fmt.Errorf("%v", r)
		}
		if err != nil {
			appErr := errors.Classify(err, errors.ErrCodeExtractFailed, failedPrefix)
			span.RecordError(appErr)
			span.SetAttributes(attribute.String("error.code", appErr.Code))
			text, err = "", appErr
		}
	}()

	switch format {
	case FormatText:
		return decodeText(data), nil
	case FormatPDF:
		return e.extractPDF(filename, data)
	case FormatDocx:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType, MsgDocxOnFrontend, nil).
			WithContext("filename", filename)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType, MsgUnsupported, nil).
			WithContext("filename", filename)
	}
}

// decodeText reads data as UTF-8, dropping invalid bytes, and trims surrounding space.
func decodeText(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}

func (e *Extractor) extractPDF(filename string, data []byte) (string, error) {
	pages, err := e.pdfPages(data)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(strings.Join(pages, "\n"))
	e.logger.Debug("extract.pdf.pages", "filename", filename, "pages", len(pages), "chars", len(text))

	if text == "" {
		return "", errors.NewUnprocessableError(errors.ErrCodeNoExtractableText, MsgNoPDFText, nil).
			WithContext("pages", len(pages))
	}
	return text, nil
}

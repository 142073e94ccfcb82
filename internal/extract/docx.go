package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"kandrai/internal/errors"

	"github.com/nguyenthenguyen/docx"
)

// MsgNoDocxText is returned for a DOCX file whose body holds no text.
const MsgNoDocxText = "No extractable text found in DOCX."

var docxTag = regexp.MustCompile(`<[^>]*>`)

// ReadDocxText returns the body text of a DOCX file, one line per paragraph.
// The HTTP API leaves DOCX to the front-end; this is for local files only.
func ReadDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("Cannot read DOCX file: %v", err), err)
	}
	defer doc.Close()

	text := docxPlainText(doc.Editable().GetContent())
	if text == "" {
		return "", errors.NewUnprocessableError(errors.ErrCodeNoExtractableText, MsgNoDocxText, nil)
	}
	return text, nil
}

// docxPlainText strips WordprocessingML markup from a document.xml body.
func docxPlainText(body string) string {
	body = strings.ReplaceAll(body, "</w:p>", "\n")
	body = strings.ReplaceAll(body, "<w:tab/>", "\t")
	body = strings.ReplaceAll(body, "<w:br/>", "\n")
	body = html.UnescapeString(docxTag.ReplaceAllString(body, ""))

	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Package extract turns uploaded CV documents into plain text.
package extract

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"cvalign/internal/errors"
	"cvalign/internal/types"
)

var (
	xmlParagraph = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// KindFromFilename maps an upload's filename extension to a document
// kind. The check is case-insensitive; anything but .pdf/.docx is a
// validation failure.
func KindFromFilename(filename string) (types.DocumentKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return types.DocumentPDF, nil
	case ".docx":
		return types.DocumentDOCX, nil
	default:
		return "", errors.NewValidationError(
			errors.ErrCodeUnsupportedFileType,
			"only PDF and DOCX files are supported",
			nil,
		).WithContext("filename", filename)
	}
}

// Extract returns the plain text of a CV document. The result is
// guaranteed non-empty after trimming; a document that yields nothing
// (including a 0-byte upload) is an extraction error, never a panic.
func Extract(data []byte, kind types.DocumentKind) (string, error) {
	var (
		text string
		err  error
	)

	switch kind {
	case types.DocumentPDF:
		text, err = extractPDF(data)
	case types.DocumentDOCX:
		text, err = extractDOCX(data)
	default:
		return "", errors.NewValidationError(
			errors.ErrCodeUnsupportedFileType,
			"unsupported document kind",
			nil,
		).WithContext("kind", string(kind))
	}

	if err != nil {
		return "", errors.NewExtractionError(
			errors.ErrCodeExtractionFailed,
			"failed to extract text from document",
			err,
		).WithContext("kind", string(kind))
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.NewExtractionError(
			errors.ErrCodeEmptyDocument,
			"document contains no extractable text",
			nil,
		).WithContext("kind", string(kind))
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	// GetContent returns WordprocessingML; flatten paragraphs to lines
	// and drop the remaining markup.
	content := doc.Editable().GetContent()
	content = xmlParagraph.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return content, nil
}

// Package resume turns an uploaded résumé into plain text.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("document contains no extractable text")

// Extractor pulls plain text out of a document.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(data []byte) (string, error)

// Extract calls f(data).
func (f ExtractorFunc) Extract(data []byte) (string, error) {
	return f(data)
}

// PDFExtractor reads the text layer of every page in order.
type PDFExtractor struct{}

// Extract implements Extractor. The parser panics on some malformed
// documents, so panics are reported as errors.
func (PDFExtractor) Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		builder.WriteString(content)
	}

	if strings.TrimSpace(builder.String()) == "" {
		return "", ErrNoText
	}
	return builder.String(), nil
}

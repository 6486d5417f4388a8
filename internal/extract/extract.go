// Package extract converts uploaded study documents into plain text for
// prompting. Structured formats delegate to format-specific decoders; all
// output is truncated to MaxContentChars to bound downstream prompt size.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxContentChars bounds the extracted text sent to the generator.
	MaxContentChars = 10000
	// MaxPages bounds how many PDF pages or PPTX slides are scanned.
	MaxPages = 50
)

var (
	// ErrUnsupportedFormat is returned when the declared MIME type matches
	// none of the recognized document formats.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed is returned when a decoder fails or produces no text.
	ErrExtractionFailed = errors.New("failed to extract text")
)

// MIME types recognized by the extractor.
const (
	MIMEPlainText    = "text/plain"
	MIMEPDF          = "application/pdf"
	MIMEWordLegacy   = "application/msword"
	MIMEWordOOXML    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTLegacy    = "application/vnd.ms-powerpoint"
	MIMEPPTXOOXML    = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEPresentation = "application/vnd.presentationml.presentation"
)

// Extract converts raw document bytes of a declared MIME type into plain text.
// It fails with ErrUnsupportedFormat for unrecognized types and wraps decoder
// failures (corrupted, encrypted, or empty input) in ErrExtractionFailed.
func Extract(data []byte, declaredType, name string) (string, error) {
	var (
		text string
		err  error
	)
	switch declaredType {
	case MIMEPlainText:
		text, err = extractPlainText(data)
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEWordLegacy, MIMEWordOOXML:
		text, err = extractDocx(data)
	case MIMEPPTLegacy, MIMEPPTXOOXML, MIMEPresentation:
		text, err = extractPptx(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, declaredType)
	}
	if err != nil {
		return "", fmt.Errorf("%w from %s: %v", ErrExtractionFailed, name, err)
	}
	text = truncate(strings.TrimSpace(text), MaxContentChars)
	if text == "" {
		return "", fmt.Errorf("%w from %s: no text content", ErrExtractionFailed, name)
	}
	return text, nil
}

// extractPlainText is a straight byte-to-UTF8 transform with whitespace trim.
func extractPlainText(data []byte) (string, error) {
	return strings.TrimSpace(string(data)), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

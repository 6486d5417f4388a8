package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls plain text from up to MaxPages pages of a PDF document.
// Encrypted or malformed files surface as decode errors for the caller to wrap.
func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs; treat that as a
	// decode failure rather than letting it take the request down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	pages := reader.NumPage()
	if pages > MaxPages {
		pages = MaxPages
	}
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages; a fully unreadable document is caught
			// by the empty-output check in Extract.
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

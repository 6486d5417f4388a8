package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// extractDocx reads the main document part of a .docx archive and joins its
// text runs (<w:t> elements).
func extractDocx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}
	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		return textRuns(content, " "), nil
	}
	return "", fmt.Errorf("document.xml not found in archive")
}

// extractPptx reads up to MaxPages slide parts of a .pptx archive and joins
// their text runs (<a:t> elements), one line per slide.
func extractPptx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid pptx archive: %w", err)
	}

	var slides []*zip.File
	for _, f := range archive.File {
		if strings.HasPrefix(f.Name, "ppt/slides/") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides found in archive")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Name < slides[j].Name })
	if len(slides) > MaxPages {
		slides = slides[:MaxPages]
	}

	var sb strings.Builder
	for _, f := range slides {
		content, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		sb.WriteString(textRuns(content, " "))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// textRuns collects the character data of every <t> element (w:t in
// WordprocessingML, a:t in DrawingML) joined by sep. Malformed XML past the
// readable prefix is tolerated; whatever was collected is returned.
func textRuns(content []byte, sep string) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var parts []string
	depth := 0 // >0 while inside a <t> element
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == "t" && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				parts = append(parts, string(t))
			}
		}
	}
	return strings.Join(parts, sep)
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/vea-digital/asistente/internal/core"
)

// minPDFTextLen is the threshold under which a PDF's text layer is
// considered absent and the document treated as scanned.
const minPDFTextLen = 20

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".bmp": true, ".gif": true, ".tiff": true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".csv": true,
}

// Extractor turns raw document bytes into plain text. Parsing of PDFs and
// Word documents goes through docconv; image recognition is delegated to
// the injected OCR provider.
type Extractor struct {
	ocr core.OCRProvider
}

func NewExtractor(ocr core.OCRProvider) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract dispatches on extension first, content type second.
// Returns ErrUnsupportedFormat for unknown formats and wraps provider
// errors with ErrExtractionFailed. An empty OCR result is not an error.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(contentType)

	switch {
	case imageExts[ext] || strings.HasPrefix(ct, "image/"):
		text, err := e.ocr.ExtractFromImage(ctx, data)
		if err != nil {
			return "", fmt.Errorf("%w: ocr %s: %v", core.ErrExtractionFailed, filename, err)
		}
		return text, nil

	case ext == ".pdf" || ct == "application/pdf":
		return e.extractPDF(ctx, data, filename)

	case ext == ".docx" || ext == ".doc" || strings.Contains(ct, "word"):
		res, err := docconv.Convert(bytes.NewReader(data), docconv.MimeTypeByExtension(filename), false)
		if err != nil {
			return "", fmt.Errorf("%w: word %s: %v", core.ErrExtractionFailed, filename, err)
		}
		return strings.TrimSpace(res.Body), nil

	case textExts[ext] || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "plain"):
		return decodeText(data), nil
	}

	return "", fmt.Errorf("%w: %s (content type %q)", core.ErrUnsupportedFormat, ext, contentType)
}

// extractPDF tries the text layer first. When the concatenated text is
// shorter than minPDFTextLen the PDF is treated as scanned: embedded
// raster images are pulled out in page order and OCRed one by one.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, filename string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		log.Printf("extract: pdf text layer failed for %s: %v", filename, err)
	} else if text := strings.TrimSpace(res.Body); len(text) >= minPDFTextLen {
		return text, nil
	}

	images := embeddedJPEGs(data)
	if len(images) == 0 {
		if err != nil {
			return "", fmt.Errorf("%w: pdf %s: %v", core.ErrExtractionFailed, filename, err)
		}
		if res != nil {
			return strings.TrimSpace(res.Body), nil
		}
		return "", nil
	}

	var pages []string
	for i, img := range images {
		text, err := e.ocr.ExtractFromImage(ctx, img)
		if err != nil {
			log.Printf("extract: ocr failed for page image %d of %s: %v", i, filename, err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// decodeText decodes as UTF-8 and falls back to Latin-1 when the bytes
// are not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

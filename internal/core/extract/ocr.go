package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"code.sajari.com/docconv"

	"github.com/vea-digital/asistente/internal/core"
)

// DocconvOCR recognizes text in raster images through docconv's image
// conversion (tesseract underneath).
type DocconvOCR struct{}

var _ core.OCRProvider = (*DocconvOCR)(nil)

func NewDocconvOCR() *DocconvOCR {
	return &DocconvOCR{}
}

// ExtractFromImage runs OCR over the image bytes. The content type is
// sniffed from the bytes since page images pulled out of PDFs carry no
// filename.
func (o *DocconvOCR) ExtractFromImage(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("not an image: detected %s", mime)
	}
	res, err := docconv.Convert(bytes.NewReader(image), mime, false)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(res.Body), nil
}

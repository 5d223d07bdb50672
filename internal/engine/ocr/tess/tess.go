// Package tess implements ocr.Recognizer on top of tesseract through gosseract.
// It needs cgo and the tesseract/leptonica libraries, which is why it lives
// outside package ocr.
package tess

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer opens a fresh tesseract client per page; gosseract clients are
// not safe for concurrent use.
type Recognizer struct {
	tessdataDir string
}

func New(tessdataDir string) *Recognizer {
	return &Recognizer{tessdataDir: tessdataDir}
}

// Version reports the linked tesseract version.
func Version() string {
	return gosseract.Version()
}

func (r *Recognizer) Recognize(ctx context.Context, img []byte, lang string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", -1, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if r.tessdataDir != "" {
		if err := client.SetTessdataPrefix(r.tessdataDir); err != nil {
			return "", -1, fmt.Errorf("tessdata prefix: %w", err)
		}
	}
	if lang != "" {
		if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return "", -1, fmt.Errorf("set language %q: %w", lang, err)
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", -1, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", -1, fmt.Errorf("recognize: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return text, -1, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return text, sum / float64(len(boxes)), nil
}

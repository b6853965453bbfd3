package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmptyBlob = errors.New("empty file")
	ErrTooLarge  = errors.New("file too large")
	ErrNotImage  = errors.New("file is not an image")
)

// SniffImage detecta el tipo por contenido (no por extensión) y exige image/*.
func SniffImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), maxBytes)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return mt.String(), nil
}

// Package document validates uploaded evidence files (proformas, receipts,
// payment proofs) before they are forwarded to the backend.
package document

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize int64 = 10 << 20

var (
	ErrEmpty          = errors.New("file is empty")
	ErrTooLarge       = errors.New("file too large")
	ErrTypeNotAllowed = errors.New("file type not allowed")
)

// AllowedTypes lists the accepted content types.
var AllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/tiff",
}

// Validate checks the declared size and the content type detected from the
// leading bytes of f, then rewinds f. It returns the detected type.
func Validate(f io.ReadSeeker, size int64) (string, error) {
	if size <= 0 {
		return "", ErrEmpty
	}
	if size > MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, MaxSize)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}
	return check(mtype)
}

func check(mtype *mimetype.MIME) (string, error) {
	for _, allowed := range AllowedTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, mtype.String())
}

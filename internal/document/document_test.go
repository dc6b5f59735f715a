package document

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	tiffBytes = []byte("II*\x00\x08\x00\x00\x00\x00\x00")
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "PDF", data: pdfBytes, expected: "application/pdf"},
		{name: "PNG", data: pngBytes, expected: "image/png"},
		{name: "JPEG", data: jpegBytes, expected: "image/jpeg"},
		{name: "TIFF", data: tiffBytes, expected: "image/tiff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := Validate(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mime)
		})
	}
}

func TestValidate_RejectsOtherTypes(t *testing.T) {
	text := []byte("just some text, not a document")
	_, err := Validate(bytes.NewReader(text), int64(len(text)))
	assert.ErrorIs(t, err, ErrTypeNotAllowed)
}

func TestValidate_RewindsReader(t *testing.T) {
	r := bytes.NewReader(pdfBytes)

	mime, err := Validate(r, int64(len(pdfBytes)))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, rest)
}

func TestValidate_SizeCheckedBeforeReading(t *testing.T) {
	_, err := Validate(bytes.NewReader(pdfBytes), MaxSize+1)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Validate(bytes.NewReader(pdfBytes), 0)
	assert.ErrorIs(t, err, ErrEmpty)
}

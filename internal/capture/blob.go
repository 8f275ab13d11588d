package capture

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Blob is an immutable, typed chunk of encoded image data.
type Blob struct {
	Type string
	data []byte
}

// NewBlob copies data into a new blob.
func NewBlob(mimeType string, data []byte) *Blob {
	dup := make([]byte, len(data))
	copy(dup, data)
	return &Blob{Type: mimeType, data: dup}
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.data))
}

// Bytes returns a copy of the blob contents.
func (b *Blob) Bytes() []byte {
	if b == nil {
		return nil
	}
	dup := make([]byte, len(b.data))
	copy(dup, b.data)
	return dup
}

// ReadAsDataURL encodes the blob as a base64 data URL.
func (b *Blob) ReadAsDataURL() (string, error) {
	if b == nil {
		return "", fmt.Errorf("read blob: nil blob")
	}
	mimeType := b.Type
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b.data), nil
}

// ParseDataURL decodes a data URL produced by ReadAsDataURL. Non-base64
// payloads are returned verbatim.
func ParseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("parse data url: missing data: scheme")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("parse data url: missing payload separator")
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}
	if !isBase64 {
		return mimeType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("parse data url: %w", err)
	}
	return mimeType, data, nil
}

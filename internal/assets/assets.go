// Package assets turns image queries into validated image bytes.
package assets

import (
	"bytes"
	"context"

	"autodeck/internal/model"
)

const DefaultMinImageBytes = 5000

// Resolver resolves an image query. Failures are *model.AssetError and never
// abort a run; the slide falls back to another layout.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*model.Asset, error)
}

var magics = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
}

// DetectMIME identifies an image by its magic bytes. It returns "" for
// anything that is not a PNG, JPEG or GIF.
func DetectMIME(data []byte) string {
	for _, m := range magics {
		if bytes.HasPrefix(data, m.prefix) {
			return m.mime
		}
	}
	return ""
}

func isValidImage(data []byte, minBytes int) (string, bool) {
	if len(data) < minBytes {
		return "", false
	}
	mime := DetectMIME(data)
	return mime, mime != ""
}

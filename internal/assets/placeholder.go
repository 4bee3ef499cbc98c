package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"

	"autodeck/internal/model"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 360
)

// Placeholder renders a deterministic gradient PNG for every query. It is the
// offline resolver used with the mock provider.
type Placeholder struct{}

var _ Resolver = Placeholder{}

func (Placeholder) Resolve(ctx context.Context, query string) (*model.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.AssetError{Query: query, Err: err}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.AssetError{Query: query, Err: errors.New("empty query")}
	}

	data, err := gradientPNG(query)
	if err != nil {
		return nil, &model.AssetError{Query: query, Err: err}
	}
	return &model.Asset{Query: query, Data: data, MIME: "image/png"}, nil
}

func gradientPNG(seed string) ([]byte, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum32()

	from := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 0xFF}
	to := color.RGBA{R: 255 - from.R, G: 255 - from.G, B: 255 - from.B, A: 0xFF}

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for x := range placeholderWidth {
		t := float64(x) / float64(placeholderWidth-1)
		c := color.RGBA{
			R: mix(from.R, to.R, t),
			G: mix(from.G, to.G, t),
			B: mix(from.B, to.B, t),
			A: 0xFF,
		}
		for y := range placeholderHeight {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

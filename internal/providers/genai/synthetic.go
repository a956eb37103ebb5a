package genai

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"studio/internal/domain"
)

const (
	maxSyntheticHeight = 1024
	syntheticGutter    = 24
)

var syntheticBackground = color.RGBA{R: 17, G: 24, B: 39, A: 255}

// ComposeSideBySide places the childhood photo left of the present-day photo
// on one PNG canvas, both scaled to a shared height.
func ComposeSideBySide(childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
	left, err := decode(childhood)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("genai: decode childhood photo: %w", err)
	}
	right, err := decode(present)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("genai: decode present-day photo: %w", err)
	}

	height := minInt(left.Bounds().Dy(), right.Bounds().Dy())
	height = minInt(height, maxSyntheticHeight)
	if height <= 0 {
		return domain.EncodedImage{}, fmt.Errorf("genai: %w", domain.ErrEmptyImage)
	}
	lw := scaledWidth(left.Bounds(), height)
	rw := scaledWidth(right.Bounds(), height)

	canvas := image.NewRGBA(image.Rect(0, 0, lw+rw+3*syntheticGutter, height+2*syntheticGutter))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{syntheticBackground}, image.Point{}, draw.Src)

	leftRect := image.Rect(syntheticGutter, syntheticGutter, syntheticGutter+lw, syntheticGutter+height)
	rightRect := image.Rect(leftRect.Max.X+syntheticGutter, syntheticGutter, leftRect.Max.X+syntheticGutter+rw, syntheticGutter+height)
	xdraw.CatmullRom.Scale(canvas, leftRect, left, left.Bounds(), draw.Over, nil)
	xdraw.CatmullRom.Scale(canvas, rightRect, right, right.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("genai: encode composite: %w", err)
	}
	return domain.EncodedImage{MediaType: "image/png", Data: buf.Bytes()}, nil
}

func decode(img domain.EncodedImage) (image.Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func scaledWidth(b image.Rectangle, height int) int {
	if b.Dy() == 0 {
		return 0
	}
	w := b.Dx() * height / b.Dy()
	if w < 1 {
		return 1
	}
	return w
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

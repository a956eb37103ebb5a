// Package imageinput turns user-selected files into encoded images.
package imageinput

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"studio/internal/domain"
)

// AcceptedMediaTypes mirrors the accept list of the file picker.
var AcceptedMediaTypes = []string{"image/png", "image/jpeg", "image/webp"}

// AcceptAttribute renders AcceptedMediaTypes for an <input type="file">.
func AcceptAttribute() string {
	return strings.Join(AcceptedMediaTypes, ", ")
}

// Accepts reports whether mediaType is one of AcceptedMediaTypes.
func Accepts(mediaType string) bool {
	base, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	for _, accepted := range AcceptedMediaTypes {
		if base == accepted {
			return true
		}
	}
	return false
}

// Read consumes src and returns it as an encoded image. The media type is
// sniffed from the content, never taken from the file name or the client.
// No size or dimension limit is applied.
func Read(ctx context.Context, src io.Reader, name string) (domain.EncodedImage, error) {
	if src == nil {
		return domain.EncodedImage{}, &domain.ReadError{Name: name, Err: io.ErrUnexpectedEOF}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, contextReader{ctx: ctx, r: src}); err != nil {
		return domain.EncodedImage{}, &domain.ReadError{Name: name, Err: err}
	}
	if buf.Len() == 0 {
		return domain.EncodedImage{}, &domain.ReadError{Name: name, Err: domain.ErrEmptyImage}
	}
	sniffed := http.DetectContentType(buf.Bytes())
	if !Accepts(sniffed) {
		return domain.EncodedImage{}, &domain.ReadError{
			Name: name,
			Err:  fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, sniffed),
		}
	}
	mediaType, _, _ := mime.ParseMediaType(sniffed)
	return domain.EncodedImage{MediaType: mediaType, Data: buf.Bytes()}, nil
}

// Select reads src and publishes the result through onSelect. onSelect runs
// exactly once when the read succeeds and never when it fails.
func Select(ctx context.Context, src io.Reader, name string, onSelect func(domain.EncodedImage)) error {
	img, err := Read(ctx, src, name)
	if err != nil {
		return err
	}
	if onSelect != nil {
		onSelect(img)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

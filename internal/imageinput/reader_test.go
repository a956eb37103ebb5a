package imageinput

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"studio/internal/domain"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestReadSniffsMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "png", data: samplePNG(t, 2, 2), want: "image/png"},
		{name: "jpeg", data: []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00"), want: "image/jpeg"},
		{name: "webp", data: []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), want: "image/webp"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := Read(context.Background(), bytes.NewReader(tc.data), tc.name)
			if err != nil {
				t.Fatalf("Read error: %v", err)
			}
			if img.MediaType != tc.want {
				t.Fatalf("media type = %q, want %q", img.MediaType, tc.want)
			}
			if !bytes.Equal(img.Data, tc.data) {
				t.Fatalf("payload changed during read")
			}
		})
	}
}

func TestReadRejectsNonImages(t *testing.T) {
	_, err := Read(context.Background(), bytes.NewReader([]byte("hello, world")), "notes.txt")
	var readErr *domain.ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if !errors.Is(err, domain.ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}
	if readErr.Name != "notes.txt" {
		t.Fatalf("unexpected name: %q", readErr.Name)
	}
}

// No size validation is performed: a large image passes through unchanged.
// This is a known limitation, kept on purpose.
func TestReadAcceptsOversizedImage(t *testing.T) {
	data := samplePNG(t, 1, 1)
	data = append(data, make([]byte, 32<<20)...)
	img, err := Read(context.Background(), bytes.NewReader(data), "huge.png")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(img.Data) != len(data) {
		t.Fatalf("payload truncated: got %d bytes, want %d", len(img.Data), len(data))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestSelectInvokesCallbackOnce(t *testing.T) {
	calls := 0
	var got domain.EncodedImage
	err := Select(context.Background(), bytes.NewReader(samplePNG(t, 1, 1)), "a.png", func(img domain.EncodedImage) {
		calls++
		got = img
	})
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls)
	}
	if got.IsZero() {
		t.Fatalf("callback received empty image")
	}
}

func TestSelectSkipsCallbackOnReadFailure(t *testing.T) {
	calls := 0
	err := Select(context.Background(), failingReader{}, "broken.png", func(domain.EncodedImage) { calls++ })
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected read failure, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("callback invoked %d times on failure", calls)
	}
}

func TestReadHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Read(ctx, bytes.NewReader(samplePNG(t, 1, 1)), "a.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadRejectsEmptyFile(t *testing.T) {
	if _, err := Read(context.Background(), bytes.NewReader(nil), "empty.png"); !errors.Is(err, domain.ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestAccepts(t *testing.T) {
	if !Accepts("image/png") || !Accepts("image/jpeg; charset=binary") || !Accepts("image/webp") {
		t.Fatalf("expected accepted types to pass")
	}
	if Accepts("image/gif") || Accepts("") {
		t.Fatalf("expected gif and empty to be rejected")
	}
}

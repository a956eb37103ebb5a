package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const dataURIPrefix = "data:"

// EncodedImage is an in-memory image payload that renders as a
// self-describing data URI. The zero value is the empty image.
type EncodedImage struct {
	MediaType string
	Data      []byte
}

// NewEncodedImage copies data so callers may reuse their buffer.
func NewEncodedImage(mediaType string, data []byte) EncodedImage {
	return EncodedImage{
		MediaType: strings.ToLower(strings.TrimSpace(mediaType)),
		Data:      append([]byte(nil), data...),
	}
}

// IsZero reports whether the image carries no payload.
func (img EncodedImage) IsZero() bool {
	return len(img.Data) == 0
}

// DataURI renders the image as data:<media-type>;base64,<payload>.
func (img EncodedImage) DataURI() string {
	if img.IsZero() {
		return ""
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return dataURIPrefix + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (img EncodedImage) String() string {
	if img.IsZero() {
		return "EncodedImage(empty)"
	}
	return fmt.Sprintf("EncodedImage(%s, %d bytes)", img.MediaType, len(img.Data))
}

// ParseDataURI decodes a base64 data URI such as data:image/png;base64,....
func ParseDataURI(uri string) (EncodedImage, error) {
	uri = strings.TrimSpace(uri)
	if len(uri) < len(dataURIPrefix) || !strings.EqualFold(uri[:len(dataURIPrefix)], dataURIPrefix) {
		return EncodedImage{}, errors.New("data uri: missing data: scheme")
	}
	header, payload, ok := strings.Cut(uri[len(dataURIPrefix):], ",")
	if !ok {
		return EncodedImage{}, errors.New("data uri: missing payload separator")
	}
	params := strings.Split(header, ";")
	if len(params) < 2 || !strings.EqualFold(strings.TrimSpace(params[len(params)-1]), "base64") {
		return EncodedImage{}, errors.New("data uri: only base64 payloads are supported")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return EncodedImage{}, fmt.Errorf("data uri: decode payload: %w", err)
	}
	if len(data) == 0 {
		return EncodedImage{}, fmt.Errorf("data uri: %w", ErrEmptyImage)
	}
	return NewEncodedImage(params[0], data), nil
}

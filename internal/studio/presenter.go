package studio

import (
	"context"

	"studio/internal/domain"
)

// DownloadFileName is the fixed name generated images are saved under.
const DownloadFileName = "g-rabbi-studio-creation.png"

// Saver writes a generated image somewhere the user can keep it.
type Saver interface {
	Save(ctx context.Context, name string, img domain.EncodedImage) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, name string, img domain.EncodedImage) error

func (f SaverFunc) Save(ctx context.Context, name string, img domain.EncodedImage) error {
	return f(ctx, name, img)
}

// Download hands the current result to saver under DownloadFileName, bytes
// unchanged. Without a result it returns false and saver is not called.
func (s *Session) Download(ctx context.Context, saver Saver) (bool, error) {
	snap := s.Snapshot()
	if !snap.HasResult() {
		return false, nil
	}
	if err := saver.Save(ctx, DownloadFileName, snap.Result); err != nil {
		return false, err
	}
	return true, nil
}

// Command render runs one generation from two photos on disk and saves the
// result next to them, without starting the web page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"studio/internal/domain"
	"studio/internal/imageinput"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/providers/image"
	"studio/internal/storage"
	"studio/internal/studio"
)

func main() {
	childhoodPath := flag.String("childhood", "", "path to the childhood photo")
	presentPath := flag.String("present", "", "path to the present-day photo")
	outDir := flag.String("out", ".", "directory to save the generated image in")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithRequestID(ctx, uuid.NewString())

	generator, synthetic, err := image.FromConfig(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image provider")
	}
	if synthetic {
		logger.Warn().Str("provider", cfg.ImageProvider).Msg("no provider credentials; photos will be composed locally")
	}

	session := studio.NewSession(studio.Options{
		Generator:         generator,
		GenerationTimeout: cfg.GenerationTimeout,
		Logger:            &logger,
	})

	inputs := []struct {
		slot domain.Slot
		path string
	}{
		{domain.SlotChildhood, *childhoodPath},
		{domain.SlotPresentDay, *presentPath},
	}
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		if err := selectFile(ctx, session, in.slot, in.path); err != nil {
			logger.Fatal().Err(err).Str("slot", string(in.slot)).Msg("failed to read photo")
		}
	}

	if err := session.Generate(ctx); err != nil {
		logger.Error().Err(err).Msg(studio.FailureMessage(err))
		os.Exit(1)
	}

	store, err := storage.NewFileStore(*outDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}
	saved, err := session.Download(ctx, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to save image")
	}
	if !saved {
		logger.Fatal().Err(errors.New("no result")).Msg("failed to save image")
	}
	path, _ := store.Path(studio.DownloadFileName)
	fmt.Println(path)
}

func selectFile(ctx context.Context, session *studio.Session, slot domain.Slot, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var setErr error
	err = imageinput.Select(ctx, f, path, func(img domain.EncodedImage) {
		setErr = session.Set(slot, img)
	})
	if err != nil {
		return err
	}
	return setErr
}

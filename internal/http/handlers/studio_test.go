package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/studio"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestApp(gen studio.Generator) (*App, http.Handler) {
	app := NewApp(studio.NewSession(studio.Options{Generator: gen}), zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/", app.Page)
	r.Get("/state", app.State)
	r.Get("/download", app.Download)
	r.Post("/generate", app.Generate)
	r.Post("/reset", app.Reset)
	r.Post("/slots/{slot}", app.SelectImage)
	r.Post("/slots/{slot}/remove", app.RemoveImage)
	return app, r
}

func upload(t *testing.T, h http.Handler, slot string, data []byte, asJSON bool) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/slots/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func post(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode state: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestGenerateWithBothPhotos(t *testing.T) {
	result := domain.NewEncodedImage("image/png", []byte("generated"))
	var calls atomic.Int32
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		calls.Add(1)
		return result, nil
	})
	_, h := newTestApp(gen)

	if rec := upload(t, h, "childhood", pngBytes(t, color.White), true); rec.Code != http.StatusOK {
		t.Fatalf("upload childhood: status %d", rec.Code)
	}
	if rec := upload(t, h, "present-day", pngBytes(t, color.Black), true); rec.Code != http.StatusOK {
		t.Fatalf("upload present: status %d", rec.Code)
	}

	rec := post(h, "/generate")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: status %d body %s", rec.Code, rec.Body.String())
	}
	state := decodeState(t, rec)
	if state.Status != string(domain.StatusSucceeded) {
		t.Fatalf("status = %q", state.Status)
	}
	if state.Result != result.DataURI() {
		t.Fatalf("result = %q", state.Result)
	}
	if state.Error != "" {
		t.Fatalf("unexpected error %q", state.Error)
	}
	if calls.Load() != 1 {
		t.Fatalf("generator called %d times", calls.Load())
	}
}

func TestGenerateWithMissingPhoto(t *testing.T) {
	var calls atomic.Int32
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		calls.Add(1)
		return domain.EncodedImage{}, nil
	})
	_, h := newTestApp(gen)
	upload(t, h, "childhood", pngBytes(t, color.White), true)

	rec := post(h, "/generate")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.Status != string(domain.StatusFailed) || state.Error != studio.MissingInputMessage {
		t.Fatalf("state = %+v", state)
	}
	if calls.Load() != 0 {
		t.Fatalf("generator must not be called")
	}
}

func TestGenerateSurfacesServiceMessage(t *testing.T) {
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		return domain.EncodedImage{}, &domain.ServiceError{StatusCode: http.StatusTooManyRequests, Message: "Quota exceeded"}
	})
	_, h := newTestApp(gen)
	upload(t, h, "childhood", pngBytes(t, color.White), true)
	upload(t, h, "present-day", pngBytes(t, color.Black), true)

	rec := post(h, "/generate")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.Error != "Quota exceeded" || state.Result != "" {
		t.Fatalf("state = %+v", state)
	}
	for _, slot := range state.Slots {
		if slot.Image == "" {
			t.Fatalf("slot %s cleared after failure", slot.Slot)
		}
	}
}

func TestRemoveDisablesGenerate(t *testing.T) {
	_, h := newTestApp(nil)
	upload(t, h, "childhood", pngBytes(t, color.White), true)
	upload(t, h, "present-day", pngBytes(t, color.Black), true)

	rec := post(h, "/slots/childhood/remove")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.CanGenerate {
		t.Fatalf("can_generate should be false after removal")
	}
	if state.Slots[0].Image != "" || state.Slots[1].Image == "" {
		t.Fatalf("slots = %+v", state.Slots)
	}
}

func TestSelectImageRejectsNonImage(t *testing.T) {
	_, h := newTestApp(nil)
	rec := upload(t, h, "childhood", []byte("just some text, not a picture"), true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.Notice != noticeUnsupported {
		t.Fatalf("notice = %q", state.Notice)
	}
	if state.Slots[0].Image != "" {
		t.Fatalf("slot should stay empty")
	}
}

func TestSelectImageUnknownSlot(t *testing.T) {
	_, h := newTestApp(nil)
	rec := upload(t, h, "teenage", pngBytes(t, color.White), true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestFormPostsRedirectToPage(t *testing.T) {
	_, h := newTestApp(nil)
	rec := upload(t, h, "childhood", pngBytes(t, color.White), false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("location = %q", loc)
	}
}

func TestDownload(t *testing.T) {
	result := domain.NewEncodedImage("image/png", []byte("generated-bytes"))
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		return result, nil
	})
	_, h := newTestApp(gen)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("empty download: status %d body %q", rec.Code, rec.Body.String())
	}

	upload(t, h, "childhood", pngBytes(t, color.White), true)
	upload(t, h, "present-day", pngBytes(t, color.Black), true)
	post(h, "/generate")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse disposition: %v", err)
	}
	if disposition != "attachment" || params["filename"] != studio.DownloadFileName {
		t.Fatalf("disposition = %q %v", disposition, params)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, result.Data) {
		t.Fatalf("body = %q", body)
	}
}

func TestPageRendersState(t *testing.T) {
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		return domain.EncodedImage{}, &domain.ServiceError{Message: "Model overloaded"}
	})
	_, h := newTestApp(gen)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	footer := fmt.Sprintf("&copy; %d G.Rabbi Studio. All rights reserved.", time.Now().Year())
	for _, want := range []string{"G.Rabbi Studio", "Embrace Your Inner Child", "Childhood Photo", "Present-Day Photo", "disabled", footer} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	upload(t, h, "childhood", pngBytes(t, color.White), true)
	upload(t, h, "present-day", pngBytes(t, color.Black), true)
	post(h, "/generate")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "Generation Failed") || !strings.Contains(body, "Model overloaded") {
		t.Fatalf("page missing failure box")
	}
	if !strings.Contains(body, `src="data:image/png;base64,`) {
		t.Fatalf("page missing slot preview")
	}
	if strings.Contains(body, "Your Generated Memory") {
		t.Fatalf("failed page must not show a result")
	}
}

func TestResetClearsState(t *testing.T) {
	_, h := newTestApp(nil)
	upload(t, h, "childhood", pngBytes(t, color.White), true)
	state := decodeState(t, post(h, "/reset"))
	if state.Status != string(domain.StatusIdle) || state.Slots[0].Image != "" {
		t.Fatalf("state = %+v", state)
	}
}

func TestFormGenerateRedirectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	result := domain.NewEncodedImage("image/png", []byte("generated"))
	gen := studio.GeneratorFunc(func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
		select {
		case <-release:
			return result, nil
		case <-ctx.Done():
			return domain.EncodedImage{}, ctx.Err()
		}
	})
	app, h := newTestApp(gen)
	upload(t, h, "childhood", pngBytes(t, color.White), true)
	upload(t, h, "present-day", pngBytes(t, color.Black), true)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/generate", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	// the browser leaving must not cancel the attempt
	cancel()
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("form generate: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}

	stateRec := httptest.NewRecorder()
	h.ServeHTTP(stateRec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if state := decodeState(t, stateRec); state.Status != string(domain.StatusInFlight) || state.CanGenerate {
		t.Fatalf("state = %+v, want in_flight", state)
	}

	pageRec := httptest.NewRecorder()
	h.ServeHTTP(pageRec, httptest.NewRequest(http.MethodGet, "/", nil))
	page := pageRec.Body.String()
	if !strings.Contains(page, "Generating Your Moment...") || !strings.Contains(page, `http-equiv="refresh"`) {
		t.Fatalf("page does not show the loading state")
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for app.Session.Snapshot().Status.IsInFlight() {
		if time.Now().After(deadline) {
			t.Fatalf("generation did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := app.Session.Snapshot()
	if snap.Status.Kind != domain.StatusSucceeded || !bytes.Equal(snap.Result.Data, result.Data) {
		t.Fatalf("status = %+v after release", snap.Status)
	}
}

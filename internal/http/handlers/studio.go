package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/imageinput"
	"studio/internal/studio"
)

const (
	uploadField = "photo"
	// multipart parts above this size spill to temporary files; it is not an
	// upload limit.
	multipartMemory = 32 << 20

	noticeMissingFile = "Choose a photo to upload."
	noticeUnsupported = "Only PNG, JPEG and WEBP images are supported."
	noticeUnreadable  = "The selected file could not be read. Please try another photo."
)

type slotState struct {
	Slot  string `json:"slot"`
	Label string `json:"label"`
	Image string `json:"image,omitempty"`
}

type stateResponse struct {
	Status       string      `json:"status"`
	Error        string      `json:"error,omitempty"`
	Notice       string      `json:"notice,omitempty"`
	Slots        []slotState `json:"slots"`
	Result       string      `json:"result,omitempty"`
	CanGenerate  bool        `json:"can_generate"`
	DownloadName string      `json:"download_name"`
}

func newStateResponse(snap studio.Snapshot) stateResponse {
	resp := stateResponse{
		Status:       string(snap.Status.Kind),
		Error:        snap.Status.Message,
		Notice:       snap.Notice,
		Result:       snap.Result.DataURI(),
		CanGenerate:  snap.CanGenerate(),
		DownloadName: studio.DownloadFileName,
	}
	for _, slot := range domain.Slots {
		resp.Slots = append(resp.Slots, slotState{
			Slot:  string(slot),
			Label: slot.Label(),
			Image: snap.Slot(slot).DataURI(),
		})
	}
	return resp
}

func (a *App) State(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, newStateResponse(a.Session.Snapshot()))
}

func (a *App) SelectImage(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown image slot")
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		a.rejectUpload(w, r, slot, noticeUnreadable, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		a.rejectUpload(w, r, slot, noticeMissingFile, err)
		return
	}
	defer file.Close()

	err = imageinput.Select(r.Context(), file, header.Filename, func(img domain.EncodedImage) {
		_ = a.Session.Set(slot, img)
	})
	if err != nil {
		notice := noticeUnreadable
		if errors.Is(err, domain.ErrUnsupportedMediaType) {
			notice = noticeUnsupported
		}
		a.rejectUpload(w, r, slot, notice, err)
		return
	}
	a.Logger.Debug().Str("slot", string(slot)).Str("file", header.Filename).Msg("studio: image selected")
	a.respond(w, r, http.StatusOK)
}

func (a *App) rejectUpload(w http.ResponseWriter, r *http.Request, slot domain.Slot, notice string, err error) {
	a.Logger.Warn().Err(err).Str("slot", string(slot)).Msg("studio: image rejected")
	a.Session.SetNotice(notice)
	a.respond(w, r, http.StatusBadRequest)
}

func (a *App) RemoveImage(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown image slot")
		return
	}
	_ = a.Session.Remove(slot)
	a.respond(w, r, http.StatusOK)
}

// Generate waits for the outcome when the client asked for JSON. Form clients
// are redirected as soon as the attempt is in flight so the page can show the
// loading state; that attempt outlives the request.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if !wantsJSON(r) {
		if _, err := a.Session.Start(context.WithoutCancel(r.Context())); err != nil {
			a.Logger.Debug().Err(err).Msg("studio: generation not started")
		}
		a.respond(w, r, http.StatusAccepted)
		return
	}
	err := a.Session.Generate(r.Context())
	var validation *domain.ValidationError
	switch {
	case err == nil:
		a.respond(w, r, http.StatusOK)
	case errors.As(err, &validation):
		a.respond(w, r, http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrGenerationInFlight):
		a.respond(w, r, http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded):
		a.respond(w, r, http.StatusGatewayTimeout)
	default:
		a.respond(w, r, http.StatusBadGateway)
	}
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	a.Session.Reset()
	a.respond(w, r, http.StatusOK)
}

// Download streams the generated image as an attachment. Without a result
// nothing is written beyond a 204.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	saved, err := a.Session.Download(r.Context(), attachmentSaver{w: w})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("studio: download interrupted")
		return
	}
	if !saved {
		w.WriteHeader(http.StatusNoContent)
	}
}

// attachmentSaver hands the image to the browser's native save mechanism.
type attachmentSaver struct {
	w http.ResponseWriter
}

func (s attachmentSaver) Save(_ context.Context, name string, img domain.EncodedImage) error {
	contentType := img.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	s.w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	s.w.WriteHeader(http.StatusOK)
	_, err := s.w.Write(img.Data)
	return err
}

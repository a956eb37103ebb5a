package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"studio/internal/domain"
	"studio/internal/imageinput"
	"studio/internal/studio"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	// data URIs are produced by domain.EncodedImage and are safe as img src.
	"src": func(img domain.EncodedImage) template.URL { return template.URL(img.DataURI()) },
}).ParseFS(templateFS, "templates/index.html"))

type pageSlot struct {
	Slot  domain.Slot
	Label string
	Image domain.EncodedImage
}

type pageData struct {
	Slots        []pageSlot
	Accept       string
	Status       domain.RequestStatus
	Notice       string
	Result       domain.EncodedImage
	HasResult    bool
	CanGenerate  bool
	InFlight     bool
	DownloadName string
	Year         int
}

func newPageData(snap studio.Snapshot) pageData {
	data := pageData{
		Accept:       imageinput.AcceptAttribute(),
		Status:       snap.Status,
		Notice:       snap.Notice,
		Result:       snap.Result,
		HasResult:    snap.HasResult(),
		CanGenerate:  snap.CanGenerate(),
		InFlight:     snap.Status.IsInFlight(),
		DownloadName: studio.DownloadFileName,
		Year:         time.Now().Year(),
	}
	for _, slot := range domain.Slots {
		data.Slots = append(data.Slots, pageSlot{Slot: slot, Label: slot.Label(), Image: snap.Slot(slot)})
	}
	return data
}

func (a *App) Page(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.page.Execute(&buf, newPageData(a.Session.Snapshot())); err != nil {
		a.Logger.Error().Err(err).Msg("studio: render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

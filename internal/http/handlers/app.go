package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/studio"
)

// App carries the dependencies shared by every handler.
type App struct {
	Session *studio.Session
	Logger  zerolog.Logger
	page    *template.Template
}

func NewApp(session *studio.Session, logger zerolog.Logger) *App {
	return &App{Session: session, Logger: logger, page: pageTemplate}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	var body errorBody
	body.Error.Code = errCode
	body.Error.Message = message
	a.json(w, code, body)
}

// wantsJSON reports whether the client asked for JSON instead of the page.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// respond finishes a state-changing request: JSON clients get the state with
// code, form clients are sent back to the page.
func (a *App) respond(w http.ResponseWriter, r *http.Request, code int) {
	if wantsJSON(r) {
		a.json(w, code, newStateResponse(a.Session.Snapshot()))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

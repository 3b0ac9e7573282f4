package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/alextreichler/luxora/internal/apperrors"
)

const sessionName = "luxora-session"

// Base holds what every HTML handler needs to render pages and flash messages.
type Base struct {
	SessionStore sessions.Store
	Templates    *TemplateCache
}

func (b *Base) session(r *http.Request) *sessions.Session {
	session, err := b.SessionStore.Get(r, sessionName)
	if err != nil {
		slog.Debug("Discarding unreadable session cookie", "error", err)
	}
	return session
}

// render executes the named page with the common page data filled in.
func (b *Base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	b.renderStatus(w, r, http.StatusOK, name, data)
}

func (b *Base) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	tmpl := b.Templates.Get(name)
	if tmpl == nil {
		slog.Error("Template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	session := b.session(r)
	data["Flashes"] = GetFlash(session)
	data["CsrfField"] = csrf.TemplateField(r)
	data["CurrentUser"] = CurrentUser(r.Context())
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// redirect adds flash messages of the given type and redirects to url.
func (b *Base) redirect(w http.ResponseWriter, r *http.Request, url, kind string, messages ...string) {
	session := b.session(r)
	for _, msg := range messages {
		session.AddFlash(FlashMessage{Type: kind, Message: msg})
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// redirectErr flashes the user-facing messages of err and redirects to url.
func (b *Base) redirectErr(w http.ResponseWriter, r *http.Request, url string, err error) {
	b.redirect(w, r, url, "error", apperrors.UserMessages(err)...)
}

// notFound renders the not-found page for unknown records.
func (b *Base) notFound(w http.ResponseWriter, r *http.Request, what string) {
	b.renderStatus(w, r, http.StatusNotFound, "not_found.html", map[string]interface{}{"What": what})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

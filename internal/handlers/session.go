package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

const sessionUserKey = "user_id"

type userContextKey struct{}

// WithUser returns a context carrying the current user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// CurrentUser returns the user loaded for this request, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey{}).(*models.User)
	return u
}

// UserLoader looks up accounts by id.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticator resolves the current user and gates routes on it.
type Authenticator struct {
	SessionStore sessions.Store
	Users        UserLoader
	Tokens       *auth.TokenIssuer
}

// LoadUser puts the session's user, if any, into the request context.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := a.SessionStore.Get(r, sessionName)
		id, ok := session.Values[sessionUserKey].(int64)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		u, err := a.Users.GetUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// The account is gone; forget it.
				delete(session.Values, sessionUserKey)
				session.Save(r, w)
			} else {
				slog.Error("Failed to load session user", "user_id", id, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireUser redirects anonymous visitors to the login page.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil {
			a.bounce(w, r, "/login?next="+url.QueryEscape(r.URL.Path), "Please log in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates the whole admin area: anonymous visitors go to the login
// page and signed-in non-admins go home.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r.Context())
		if u == nil {
			slog.Info("Admin access without login", "path", r.URL.Path)
			a.bounce(w, r, "/login?next="+url.QueryEscape(r.URL.Path), "You must be logged in to access this page.")
			return
		}
		if !u.IsAdmin {
			slog.Warn("Admin access denied", "user_id", u.ID, "path", r.URL.Path)
			a.bounce(w, r, "/", "You do not have permission to access the admin panel.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminAPI accepts an admin session or an admin bearer token and
// answers 401 JSON otherwise.
func (a *Authenticator) RequireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := CurrentUser(r.Context()); u != nil && u.IsAdmin {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || a.Tokens == nil {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := a.Tokens.Parse(strings.TrimSpace(raw))
		if err != nil || !claims.Admin {
			slog.Warn("Rejected API token", "path", r.URL.Path, "error", err)
			writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		id, err := claims.UserID()
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		// Tokens outlive role changes; confirm the account is still an admin.
		u, err := a.Users.GetUserByID(r.Context(), id)
		if err != nil || !u.IsAdmin {
			writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func (a *Authenticator) bounce(w http.ResponseWriter, r *http.Request, to, message string) {
	session, _ := a.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "error", Message: message})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

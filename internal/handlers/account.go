package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

type AccountHandler struct {
	Base
	Auth  *auth.Service
	Store *store.Store
}

func (h *AccountHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, "login.html", map[string]interface{}{
		"Next": safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AccountHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	login := r.PostFormValue("username_or_email")
	if login == "" {
		login = r.PostFormValue("username")
	}
	next := safeNext(r.PostFormValue("next"))

	user, err := h.Auth.Authenticate(r.Context(), login, r.PostFormValue("password"))
	if err != nil {
		to := "/login"
		if next != "" {
			to += "?next=" + url.QueryEscape(next)
		}
		h.redirectErr(w, r, to, err)
		return
	}

	// Set authenticated session
	session := h.session(r)
	session.Values[sessionUserKey] = user.ID
	session.AddFlash(FlashMessage{Type: "success", Message: "Welcome, " + user.Username + "!"})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.Info("Login successful", "user_id", user.ID, "admin", user.IsAdmin)
	http.Redirect(w, r, landingPage(user, next), http.StatusSeeOther)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	delete(session.Values, sessionUserKey)
	session.AddFlash(FlashMessage{Type: "success", Message: "Logged out successfully!"})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AccountHandler) RegisterGet(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	h.render(w, r, "register.html", nil)
}

func (h *AccountHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.Register(r.Context(), auth.Registration{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Phone:           r.PostFormValue("phone"),
		Address:         r.PostFormValue("address"),
	})
	if err != nil {
		h.redirectErr(w, r, "/register", err)
		return
	}

	session := h.session(r)
	session.Values[sessionUserKey] = user.ID
	session.AddFlash(FlashMessage{Type: "success", Message: "Account created. Welcome, " + user.Username + "!"})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	orders, err := h.Store.ListOrdersByUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to list user orders", "user_id", user.ID, "error", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "profile.html", map[string]interface{}{
		"User":   user,
		"Orders": orders,
	})
}

func (h *AccountHandler) EditProfileGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "edit_profile.html", map[string]interface{}{
		"User": CurrentUser(r.Context()),
	})
}

func (h *AccountHandler) EditProfilePost(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	_, err := h.Auth.UpdateProfile(r.Context(), user.ID, auth.Profile{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Phone:     r.PostFormValue("phone"),
		Address:   r.PostFormValue("address"),
	})
	if err != nil {
		h.redirectErr(w, r, "/profile/edit", err)
		return
	}
	h.redirect(w, r, "/profile", "success", "Profile updated.")
}

// safeNext keeps only local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func landingPage(u *models.User, next string) string {
	switch {
	case next != "" && (u.IsAdmin || !strings.HasPrefix(next, "/admin")):
		return next
	case u.IsAdmin:
		return "/admin"
	default:
		return "/"
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/ordering"
	"github.com/alextreichler/luxora/internal/store"
)

const maxJSONBody = 1 << 20

// APIHandler serves the JSON product request API.
type APIHandler struct {
	Store  *store.Store
	Orders *ordering.Service
	Auth   *auth.Service
	Tokens *auth.TokenIssuer
}

type productRequestResponse struct {
	Success     bool        `json:"success"`
	RequestID   int64       `json:"request_id"`
	ProductName string      `json:"product_name"`
	UserName    string      `json:"user_name"`
	Quantity    int         `json:"quantity"`
	TotalPrice  json.Number `json:"total_price"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CreateRequest handles POST /api/product-requests.
func (h *APIHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in ordering.RequestSubmission
	if err := decodeJSON(r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.Orders.SubmitRequest(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, productRequestResponse{
		Success:     true,
		RequestID:   req.ID,
		ProductName: req.ProductName,
		UserName:    req.UserName,
		Quantity:    req.Quantity,
		TotalPrice:  json.Number(req.TotalPrice.StringFixed(2)),
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
	})
}

// ListRequests handles GET /api/product-requests.
func (h *APIHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListProductRequests(r.Context())
	if err != nil {
		slog.Error("Failed to list product requests", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch product requests")
		return
	}
	if requests == nil {
		requests = []models.ProductRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(requests),
		"requests": requests,
	})
}

// UpdateRequest handles PUT /api/product-requests/{id}.
func (h *APIHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "product request not found")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Orders.UpdateRequestStatus(r.Context(), id, body.Status); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Request status updated to " + body.Status,
	})
}

// IssueToken handles POST /api/tokens. Only admins receive tokens.
func (h *APIHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &creds); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.Auth.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !u.IsAdmin {
		writeJSONError(w, http.StatusForbidden, "Admin access required")
		return
	}

	token, expiresAt, err := h.Tokens.Issue(u.ID, u.Username, u.IsAdmin)
	if err != nil {
		slog.Error("Failed to issue token", "user_id", u.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	slog.Info("API token issued", "user_id", u.ID, "expires_at", expiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

var errNotJSON = errors.New("Content-Type must be application/json")

func decodeJSON(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return errNotJSON
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeAppError maps an apperrors kind to its status and a JSON error body.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(apperrors.KindOf(err))
	body := map[string]any{"success": false}

	var appErr *apperrors.Error
	switch {
	case status == http.StatusInternalServerError:
		body["error"] = "Internal server error"
	case errors.As(err, &appErr):
		body["error"] = appErr.Message
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	default:
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}

package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alextreichler/luxora/internal/export"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		limit = 20 // Default limit
	}

	offset := (page - 1) * limit

	orders, err := h.Store.ListOrders(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	totalOrders, err := h.Store.CountOrders(r.Context())
	if err != nil {
		http.Error(w, "Error fetching total order count", http.StatusInternalServerError)
		return
	}

	totalPages := (totalOrders + limit - 1) / limit
	if totalPages == 0 { // Handle case with no orders
		totalPages = 1
	}

	h.render(w, r, "admin_orders.html", map[string]interface{}{
		"Orders":      orders,
		"Statuses":    models.OrderStatuses,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Limit":       limit,
	})
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/admin/orders", "error", "Invalid order ID.")
		return
	}

	if err := h.Orders.UpdateOrderStatus(r.Context(), id, r.PostFormValue("status")); err != nil {
		h.redirectErr(w, r, "/admin/orders", err)
		return
	}
	h.redirect(w, r, "/admin/orders", "success", "Order updated!")
}

func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListProductRequests(r.Context())
	if err != nil {
		http.Error(w, "Error fetching product requests", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "admin_requests.html", map[string]interface{}{
		"Requests": requests,
		"Statuses": models.RequestStatuses,
	})
}

func (h *AdminHandler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/admin/requests", "error", "Invalid request ID.")
		return
	}

	if err := h.Orders.UpdateRequestStatus(r.Context(), id, r.PostFormValue("status")); err != nil {
		h.redirectErr(w, r, "/admin/requests", err)
		return
	}
	h.redirect(w, r, "/admin/requests", "success", "Request updated!")
}

func (h *AdminHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	format, ok := h.exportFormat(w, r)
	if !ok {
		return
	}
	products, _, err := h.Store.ListProducts(r.Context(), store.ProductFilter{Sort: "id", Order: "asc"})
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteProducts(&buf, format, products); err != nil {
		slog.Error("Failed to export products", "format", format, "error", err)
		http.Error(w, "Error exporting products", http.StatusInternalServerError)
		return
	}
	sendDownload(w, format, "products", buf.Bytes())
}

func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	format, ok := h.exportFormat(w, r)
	if !ok {
		return
	}
	orders, err := h.Store.ListOrders(r.Context(), 0, 0)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOrders(&buf, format, orders); err != nil {
		slog.Error("Failed to export orders", "format", format, "error", err)
		http.Error(w, "Error exporting orders", http.StatusInternalServerError)
		return
	}
	sendDownload(w, format, "orders", buf.Bytes())
}

func (h *AdminHandler) exportFormat(w http.ResponseWriter, r *http.Request) (export.Format, bool) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.redirect(w, r, "/admin", "error", "Unsupported export format. Use csv or xlsx.")
		return "", false
	}
	return format, true
}

func sendDownload(w http.ResponseWriter, format export.Format, base string, body []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(base, time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

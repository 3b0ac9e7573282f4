package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/catalog"
	"github.com/alextreichler/luxora/internal/ordering"
	"github.com/alextreichler/luxora/internal/store"
)

type OrderHandler struct {
	Base
	Catalog *catalog.Service
	Orders  *ordering.Service
	Store   *store.Store
}

func (h *OrderHandler) OrderForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r, "Product")
		return
	}

	product, err := h.Catalog.GetProduct(r.Context(), id)
	if apperrors.Is(err, apperrors.KindNotFound) {
		h.redirect(w, r, "/", "error", "Product not found.")
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}

	quantity, err := ordering.ParseQuantity(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		quantity = 1
	}

	h.render(w, r, "order_form.html", map[string]interface{}{
		"Product":  product,
		"Quantity": quantity,
		"Total":    product.Price.Mul(decimal.NewFromInt(int64(quantity))),
	})
}

func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/", "error", "Product not found.")
		return
	}
	formURL := fmt.Sprintf("/order/%d", id)

	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, formURL, "error", "Invalid form data.")
		return
	}

	quantity, err := ordering.ParseQuantity(r.PostFormValue("quantity"))
	if err != nil {
		h.redirectErr(w, r, formURL, err)
		return
	}
	formURL += "?quantity=" + url.QueryEscape(r.PostFormValue("quantity"))

	submission := ordering.Submission{
		ProductID: id,
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Phone:     r.PostFormValue("phone"),
		State:     r.PostFormValue("state"),
		Email:     r.PostFormValue("email"),
		Address:   r.PostFormValue("address"),
		Notes:     r.PostFormValue("notes"),
		Quantity:  quantity,
	}
	if u := CurrentUser(r.Context()); u != nil {
		submission.UserID = &u.ID
	}

	order, err := h.Orders.PlaceOrder(r.Context(), submission)
	switch {
	case apperrors.Is(err, apperrors.KindNotFound):
		h.redirect(w, r, "/", "error", "Product not found.")
		return
	case err != nil:
		h.redirectErr(w, r, formURL, err)
		return
	}

	h.redirect(w, r, fmt.Sprintf("/order/confirmation/%d", order.ID), "success",
		"Order placed successfully! Your reference is "+order.Ref+".")
}

func (h *OrderHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r, "Order")
		return
	}

	order, err := h.Store.GetOrderByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.notFound(w, r, "Order")
		return
	}
	if err != nil {
		http.Error(w, "Error fetching order", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "order_confirmation.html", map[string]interface{}{
		"Order": order,
	})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/catalog"
	"github.com/alextreichler/luxora/internal/store"
)

type HomeHandler struct {
	Base
	Catalog *catalog.Service
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	filter := store.ProductFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if id, err := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64); err == nil {
		filter.CategoryID = id
	}

	products, _, err := h.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "home.html", map[string]interface{}{
		"Products":   products,
		"Categories": categories,
		"Filter":     filter,
	})
}

func (h *HomeHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r, "Product")
		return
	}

	product, err := h.Catalog.GetProduct(r.Context(), id)
	if apperrors.Is(err, apperrors.KindNotFound) {
		h.notFound(w, r, "Product")
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "product.html", map[string]interface{}{
		"Product": product,
	})
}

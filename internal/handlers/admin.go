package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/catalog"
	"github.com/alextreichler/luxora/internal/ordering"
	"github.com/alextreichler/luxora/internal/store"
)

type AdminHandler struct {
	Base
	Store          *store.Store
	Catalog        *catalog.Service
	Orders         *ordering.Service
	MaxUploadBytes int64
}

// Dashboard lists the catalog with search, category filter and sorting, plus
// categories, users and ledger statistics.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	}
	if id, err := strconv.ParseInt(q.Get("category"), 10, 64); err == nil {
		filter.CategoryID = id
	}

	products, total, err := h.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "Error fetching users", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "admin.html", map[string]interface{}{
		"Products":   products,
		"Total":      total,
		"Categories": categories,
		"Stats":      stats,
		"Users":      users,
		"Filter":     filter,
		"OrderBy":    filter.OrderBy(),
	})
}

// CreateProducts handles the batch form. Each product N arrives as name_N,
// price_N, desc_N, category_N and files images_N.
func (h *AdminHandler) CreateProducts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		h.redirect(w, r, "/admin", "error", fmt.Sprintf("Could not read the form. Uploads are limited to %d MB.", h.MaxUploadBytes>>20))
		return
	}
	defer r.MultipartForm.RemoveAll()

	inputs := batchInputs(r)
	if len(inputs) == 0 {
		h.redirect(w, r, "/admin", "error", "No products were found to add.")
		return
	}

	res := h.Catalog.CreateProducts(r.Context(), inputs)

	session := h.session(r)
	switch n := len(res.Created); {
	case n == 1:
		session.AddFlash(FlashMessage{Type: "success", Message: "Product added successfully."})
	case n > 1:
		session.AddFlash(FlashMessage{Type: "success", Message: fmt.Sprintf("%d products added successfully.", n)})
	}
	if len(res.Errors) > 0 {
		session.AddFlash(FlashMessage{Type: "error", Message: "Some products could not be added: " + strings.Join(res.Errors, "; ")})
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// batchInputs collects the indexed product entries of the batch form in index order.
func batchInputs(r *http.Request) []catalog.ProductInput {
	var indices []int
	for key := range r.MultipartForm.Value {
		if rest, ok := strings.CutPrefix(key, "name_"); ok {
			if i, err := strconv.Atoi(rest); err == nil {
				indices = append(indices, i)
			}
		}
	}
	sort.Ints(indices)

	inputs := make([]catalog.ProductInput, 0, len(indices))
	for _, i := range indices {
		n := strconv.Itoa(i)
		in := catalog.ProductInput{
			Name:        r.FormValue("name_" + n),
			Price:       r.FormValue("price_" + n),
			Description: r.FormValue("desc_" + n),
			CategoryID:  r.FormValue("category_" + n),
			Images:      nonEmptyFiles(r, "images_"+n),
		}
		// Rows the admin left blank are not products.
		if strings.TrimSpace(in.Name+in.Price+in.Description) == "" && len(in.Images) == 0 {
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs
}

func (h *AdminHandler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r, "Product")
		return
	}

	product, err := h.Catalog.GetProduct(r.Context(), id)
	if apperrors.Is(err, apperrors.KindNotFound) {
		h.redirect(w, r, "/admin", "error", "Product not found.")
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "admin_edit_product.html", map[string]interface{}{
		"Product":    product,
		"Categories": categories,
	})
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/admin", "error", "Invalid product ID.")
		return
	}
	editURL := fmt.Sprintf("/admin/products/%d/edit", id)

	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		h.redirect(w, r, editURL, "error", fmt.Sprintf("Could not read the form. Uploads are limited to %d MB.", h.MaxUploadBytes>>20))
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, err := h.Catalog.UpdateProduct(r.Context(), id, catalog.ProductInput{
		Name:        r.FormValue("name"),
		Price:       r.FormValue("price"),
		Description: r.FormValue("description"),
		CategoryID:  r.FormValue("category_id"),
		Images:      nonEmptyFiles(r, "images"),
	})
	switch {
	case apperrors.Is(err, apperrors.KindNotFound):
		h.redirect(w, r, "/admin", "error", "Product not found.")
	case err != nil:
		h.redirectErr(w, r, editURL, err)
	default:
		h.redirect(w, r, "/admin", "success", "Product updated successfully.")
	}
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/admin", "error", "Invalid product ID.")
		return
	}

	if err := h.Catalog.DeleteProduct(r.Context(), id); err != nil {
		h.redirectErr(w, r, "/admin", err)
		return
	}
	h.redirect(w, r, "/admin", "success", "Product deleted successfully.")
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.Catalog.CreateCategory(r.Context(), r.PostFormValue("name"), r.PostFormValue("description"))
	if err != nil {
		h.redirectErr(w, r, "/admin", err)
		return
	}
	h.redirect(w, r, "/admin", "success", "Category "+strconv.Quote(c.Name)+" added.")
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, "/admin", "error", "Invalid category ID.")
		return
	}

	if err := h.Catalog.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrCategoryInUse) {
			slog.Info("Blocked delete of category in use", "category_id", id)
		}
		h.redirectErr(w, r, "/admin", err)
		return
	}
	h.redirect(w, r, "/admin", "success", "Category deleted.")
}

// nonEmptyFiles drops file inputs that were left empty.
func nonEmptyFiles(r *http.Request, field string) []*multipart.FileHeader {
	var files []*multipart.FileHeader
	for _, fh := range r.MultipartForm.File[field] {
		if fh.Filename != "" {
			files = append(files, fh)
		}
	}
	return files
}

// Package catalog implements admin management of products and categories.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/media"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

// Store is the persistence the catalog needs.
type Store interface {
	ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product, imagePaths []string) error
	UpdateProduct(ctx context.Context, p *models.Product, newImagePaths []string) error
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// Images stores uploaded product images.
type Images interface {
	SaveFile(fh *multipart.FileHeader) (string, error)
	Remove(ref string) error
}

type Service struct {
	Store  Store
	Images Images
}

func NewService(s Store, images Images) *Service {
	return &Service{Store: s, Images: images}
}

// ProductInput carries raw admin form values for one product.
type ProductInput struct {
	Name        string
	Price       string
	Description string
	CategoryID  string // Empty for no category
	Images      []*multipart.FileHeader
}

// BatchResult reports the outcome of CreateProducts.
type BatchResult struct {
	Created []*models.Product
	Errors  []string // "product #N: ..." per rejected item
}

// CreateProducts creates every valid product in inputs. A failing item is
// reported by its 1-based position and does not stop the batch.
func (svc *Service) CreateProducts(ctx context.Context, inputs []ProductInput) BatchResult {
	var res BatchResult
	for i, in := range inputs {
		p, err := svc.CreateProduct(ctx, in)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("product #%d: %s", i+1, strings.Join(apperrors.UserMessages(err), "; ")))
			continue
		}
		res.Created = append(res.Created, p)
	}
	slog.Info("Batch product create finished", "created", len(res.Created), "failed", len(res.Errors))
	return res
}

func (svc *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{}
	if err := svc.validate(ctx, in, p); err != nil {
		return nil, err
	}

	paths, err := svc.saveImages(in.Images)
	if err != nil {
		return nil, err
	}
	if err := svc.Store.CreateProduct(ctx, p, paths); err != nil {
		svc.removeImages(paths)
		slog.Error("Failed to create product", "name", p.Name, "error", err)
		return nil, apperrors.Persistence("failed to save product", err)
	}

	slog.Info("Product created", "product_id", p.ID, "images", len(paths))
	return p, nil
}

// UpdateProduct overwrites the product's fields. Without new images the
// current primary image is kept.
func (svc *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	p, err := svc.Store.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeError("product", err)
	}
	if err := svc.validate(ctx, in, p); err != nil {
		return nil, err
	}

	paths, err := svc.saveImages(in.Images)
	if err != nil {
		return nil, err
	}
	if err := svc.Store.UpdateProduct(ctx, p, paths); err != nil {
		svc.removeImages(paths)
		return nil, storeError("product", err)
	}

	slog.Info("Product updated", "product_id", p.ID, "new_images", len(paths))
	return p, nil
}

// DeleteProduct removes the product and its image files.
func (svc *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := svc.Store.GetProductByID(ctx, id)
	if err != nil {
		return storeError("product", err)
	}
	if err := svc.Store.DeleteProduct(ctx, id); err != nil {
		return storeError("product", err)
	}

	refs := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		refs = append(refs, img.Path)
	}
	svc.removeImages(refs)
	slog.Info("Product deleted", "product_id", id)
	return nil
}

func (svc *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := svc.Store.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeError("product", err)
	}
	return p, nil
}

func (svc *Service) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int, error) {
	products, total, err := svc.Store.ListProducts(ctx, f)
	if err != nil {
		return nil, 0, apperrors.Persistence("failed to list products", err)
	}
	return products, total, nil
}

func (svc *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := svc.Store.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.Persistence("failed to list categories", err)
	}
	return categories, nil
}

func (svc *Service) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	c := &models.Category{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if c.Name == "" {
		return nil, apperrors.Validation("invalid category", map[string]string{"name": "Category name is required."})
	}
	if err := svc.Store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Validation("invalid category", map[string]string{"name": "A category with this name already exists."})
		}
		return nil, apperrors.Persistence("failed to save category", err)
	}
	slog.Info("Category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

// DeleteCategory refuses to delete a category that products still reference.
func (svc *Service) DeleteCategory(ctx context.Context, id int64) error {
	err := svc.Store.DeleteCategory(ctx, id)
	switch {
	case err == nil:
		slog.Info("Category deleted", "category_id", id)
		return nil
	case errors.Is(err, store.ErrCategoryInUse):
		return &apperrors.Error{
			Kind:    apperrors.KindValidation,
			Message: "Cannot delete a category that still has products.",
			Err:     err,
		}
	default:
		return storeError("category", err)
	}
}

// validate checks in and copies the parsed values into p.
func (svc *Service) validate(ctx context.Context, in ProductInput, p *models.Product) error {
	fields := make(map[string]string)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = "Product name is required."
	}

	var price decimal.Decimal
	priceStr := strings.TrimSpace(in.Price)
	if priceStr == "" {
		fields["price"] = "Price is required."
	} else if v, err := decimal.NewFromString(priceStr); err != nil {
		fields["price"] = "Invalid price format."
	} else if v.IsNegative() {
		fields["price"] = "Price must not be negative."
	} else {
		price = v
	}

	var categoryID *int64
	if raw := strings.TrimSpace(in.CategoryID); raw != "" && raw != "0" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields["category"] = "Invalid category."
		} else if _, err := svc.Store.GetCategoryByID(ctx, id); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return apperrors.Persistence("failed to load category", err)
			}
			fields["category"] = "Selected category does not exist."
		} else {
			categoryID = &id
		}
	}

	for _, fh := range in.Images {
		if _, err := media.Extension(fh.Filename); err != nil {
			fields["images"] = "Unsupported image type " + strconv.Quote(fh.Filename) + ". Allowed: png, jpg, jpeg, gif, webp."
			break
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation("invalid product", fields)
	}

	p.Name = name
	p.Price = price
	p.Description = strings.TrimSpace(in.Description)
	p.CategoryID = categoryID
	return nil
}

// saveImages stores every upload or none of them.
func (svc *Service) saveImages(files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := svc.Images.SaveFile(fh)
		if err != nil {
			svc.removeImages(paths)
			if errors.Is(err, media.ErrUnsupportedImage) {
				return nil, apperrors.Validation("invalid product", map[string]string{"images": err.Error()})
			}
			slog.Error("Failed to save image", "filename", fh.Filename, "error", err)
			return nil, &apperrors.Error{Kind: apperrors.KindValidation, Message: "Could not process image " + strconv.Quote(fh.Filename) + ".", Err: err}
		}
		paths = append(paths, ref)
	}
	return paths, nil
}

func (svc *Service) removeImages(refs []string) {
	for _, ref := range refs {
		if err := svc.Images.Remove(ref); err != nil {
			slog.Warn("Failed to remove image", "path", ref, "error", err)
		}
	}
}

func storeError(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(what, err)
	}
	return apperrors.Persistence("failed to save "+what, err)
}

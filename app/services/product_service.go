package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

const (
	productCachePrefix = "products:"
	productCacheTTL    = time.Minute
	// MaxProductImages caps one upload request.
	MaxProductImages = 10
)

// ProductService manages the catalog.
type ProductService struct {
	products repositories.ProductRepository
	cache    *cache.Store
	events   event.Publisher
	disk     storage.Disk
	pool     *workerpool.Pool
}

type ProductDeps struct {
	Products repositories.ProductRepository
	Cache    *cache.Store
	Events   event.Publisher
	Disk     storage.Disk
	Pool     *workerpool.Pool
}

func NewProductService(d ProductDeps) *ProductService {
	if d.Events == nil {
		d.Events = event.Nop{}
	}
	return &ProductService{products: d.Products, cache: d.Cache, events: d.Events, disk: d.Disk, pool: d.Pool}
}

// ProductPage is one page of a listing.
type ProductPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string           `json:"name"        validate:"required,min=2,max=120"`
	Description string           `json:"description" validate:"max=5000"`
	Variants    []models.Variant `json:"variants"    validate:"required,min=1,dive"`
	IsActive    *bool            `json:"isActive"`
	IsFeatured  bool             `json:"isFeatured"`
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// List returns active products, cached briefly.
func (s *ProductService) List(ctx context.Context, f repositories.ProductFilter) (*ProductPage, error) {
	f.ActiveOnly = true
	featured := "any"
	if f.Featured != nil {
		featured = strconv.FormatBool(*f.Featured)
	}
	key := fmt.Sprintf("%slist:%s:%d:%d:%s", productCachePrefix, featured, f.Page, f.Limit, strings.ToLower(f.Query))

	return cache.Remember(ctx, s.cache, key, productCacheTTL, func() (*ProductPage, error) {
		items, total, err := s.products.Find(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("products: list: %w", err)
		}
		return &ProductPage{Items: items, Total: total}, nil
	})
}

// ListAll returns every product, archived ones included.
func (s *ProductService) ListAll(ctx context.Context, f repositories.ProductFilter) (*ProductPage, error) {
	f.ActiveOnly = false
	items, total, err := s.products.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("products: list all: %w", err)
	}
	return &ProductPage{Items: items, Total: total}, nil
}

// Get returns a product. Archived products are only visible to admins.
func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID, admin bool) (*models.Product, error) {
	p, err := cache.Remember(ctx, s.cache, productCachePrefix+"item:"+id.Hex(), productCacheTTL, func() (*models.Product, error) {
		return s.products.FindByID(ctx, id)
	})
	if err != nil {
		return nil, notFound(err, "Product not found", "products: get")
	}
	if !p.IsActive && !admin {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

// ─── Mutations ────────────────────────────────────────────────────────────────

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Variants:    in.Variants,
		IsActive:    in.IsActive == nil || *in.IsActive,
		IsFeatured:  in.IsFeatured,
		Images:      []string{},
	}
	if err := p.CheckVariants(); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("products: create: %w", err)
	}
	s.changed(ctx, p)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product not found", "products: update")
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Variants = in.Variants
	p.IsFeatured = in.IsFeatured
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := p.CheckVariants(); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	if err := s.products.Replace(ctx, p); err != nil {
		return nil, notFound(err, "Product not found", "products: update")
	}
	s.changed(ctx, p)
	return p, nil
}

func (s *ProductService) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Product, error) {
	return s.flag(ctx, id, "isActive", active)
}

func (s *ProductService) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) (*models.Product, error) {
	return s.flag(ctx, id, "isFeatured", featured)
}

func (s *ProductService) flag(ctx context.Context, id primitive.ObjectID, field string, v bool) (*models.Product, error) {
	p, err := s.products.SetFlag(ctx, id, field, v)
	if err != nil {
		return nil, notFound(err, "Product not found", "products: "+field)
	}
	s.changed(ctx, p)
	return p, nil
}

// AddImages uploads files and appends their URLs to the product.
func (s *ProductService) AddImages(ctx context.Context, id primitive.ObjectID, files []storage.File) (*models.Product, error) {
	if len(files) == 0 {
		return nil, apperr.BadRequest("No images uploaded")
	}
	if len(files) > MaxProductImages {
		return nil, apperr.BadRequest("At most %d images per upload", MaxProductImages)
	}
	for _, f := range files {
		if !f.IsImage() {
			return nil, apperr.BadRequest("%s is not an image", f.Name)
		}
	}
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "Product not found", "products: images")
	}

	urls, err := storage.PutAll(ctx, s.disk, s.pool, "products", files)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, err, "Image upload failed")
	}
	p, err := s.products.AddImages(ctx, id, urls)
	if err != nil {
		_ = storage.DeleteURLs(context.WithoutCancel(ctx), s.disk, urls)
		return nil, notFound(err, "Product not found", "products: images")
	}
	s.changed(ctx, p)
	return p, nil
}

// Delete removes the product and its images.
func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "Product not found", "products: delete")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return notFound(err, "Product not found", "products: delete")
	}
	if err := storage.DeleteURLs(ctx, s.disk, p.Images); err != nil {
		logger.WithCtx(ctx).Warn("products: delete images", "product_id", id.Hex(), "error", err)
	}
	s.invalidate(ctx)
	s.events.Publish(ctx, event.ProductUpdated, map[string]any{"_id": id, "deleted": true})
	return nil
}

func (s *ProductService) changed(ctx context.Context, p *models.Product) {
	s.invalidate(ctx)
	s.events.Publish(ctx, event.ProductUpdated, p)
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := s.cache.DelPrefix(ctx, productCachePrefix); err != nil {
		logger.WithCtx(ctx).Warn("products: cache invalidation failed", "error", err)
	}
}

// ─── Spreadsheet ──────────────────────────────────────────────────────────────

var sheetHeader = []string{"ID", "Name", "Description", "Size", "Color", "Price", "Quantity", "Active", "Featured"}

// Export writes the catalog as xlsx, one row per variant.
func (s *ProductService) Export(ctx context.Context, w io.Writer) error {
	products, err := s.products.All(ctx)
	if err != nil {
		return fmt.Errorf("products: export: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("products: export: %w", err)
	}
	header := sheet.AddRow()
	for _, h := range sheetHeader {
		header.AddCell().SetString(h)
	}
	for _, p := range products {
		for _, v := range p.Variants {
			row := sheet.AddRow()
			row.AddCell().SetString(p.ID.Hex())
			row.AddCell().SetString(p.Name)
			row.AddCell().SetString(p.Description)
			row.AddCell().SetString(v.Size)
			row.AddCell().SetString(v.Color)
			row.AddCell().SetFloat(v.Price)
			row.AddCell().SetInt(v.Quantity)
			row.AddCell().SetBool(p.IsActive)
			row.AddCell().SetBool(p.IsFeatured)
		}
	}
	return file.Write(w)
}

// ImportResult reports what Import did.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Import reads a sheet laid out like Export. Rows sharing an ID (or, when
// the ID is blank, a name) form one product. Existing products get their
// name, description, flags and variants replaced.
func (s *ProductService) Import(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, apperr.BadRequest("Could not read the spreadsheet")
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) < 2 {
		return nil, apperr.BadRequest("Spreadsheet is empty or missing the header row")
	}

	res := &ImportResult{}
	type group struct {
		id      string
		product models.Product
	}
	var order []string
	groups := map[string]*group{}

	for i, row := range file.Sheets[0].Rows[1:] {
		if row == nil {
			continue
		}
		get := func(col int) string {
			if col < len(row.Cells) {
				return strings.TrimSpace(row.Cells[col].String())
			}
			return ""
		}
		name := get(1)
		price, perr := strconv.ParseFloat(get(5), 64)
		qty, qerr := strconv.Atoi(get(6))
		if name == "" || perr != nil || qerr != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: name, price and quantity are required", i+2))
			continue
		}

		key := get(0)
		if key == "" {
			key = "name:" + strings.ToLower(name)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{id: get(0), product: models.Product{
				Name:        name,
				Description: get(2),
				IsActive:    parseBool(get(7), true),
				IsFeatured:  parseBool(get(8), false),
				Images:      []string{},
			}}
			groups[key] = g
			order = append(order, key)
		}
		g.product.Variants = append(g.product.Variants, models.Variant{
			Size: get(3), Color: get(4), Price: price, Quantity: qty,
		})
	}

	for _, key := range order {
		g := groups[key]
		if err := s.importOne(ctx, g.id, &g.product, res); err != nil {
			if errors.As(err, new(*apperr.Error)) {
				res.Skipped++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", g.product.Name, err.Error()))
				continue
			}
			return nil, err
		}
	}
	if res.Created+res.Updated > 0 {
		s.invalidate(ctx)
	}
	return res, nil
}

func (s *ProductService) importOne(ctx context.Context, hexID string, p *models.Product, res *ImportResult) error {
	if err := p.CheckVariants(); err != nil {
		return apperr.BadRequest("%s", err.Error())
	}
	for _, v := range p.Variants {
		if v.Price <= 0 || v.Quantity < 0 {
			return apperr.BadRequest("price must be positive and quantity not negative")
		}
	}

	if hexID != "" {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			return apperr.BadRequest("invalid id %q", hexID)
		}
		existing, err := s.products.FindByID(ctx, id)
		if err == nil {
			existing.Name, existing.Description = p.Name, p.Description
			existing.Variants = p.Variants
			existing.IsActive, existing.IsFeatured = p.IsActive, p.IsFeatured
			if err := s.products.Replace(ctx, existing); err != nil {
				return fmt.Errorf("products: import update: %w", err)
			}
			res.Updated++
			s.events.Publish(ctx, event.ProductUpdated, existing)
			return nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("products: import lookup: %w", err)
		}
	}

	if err := s.products.Create(ctx, p); err != nil {
		return fmt.Errorf("products: import create: %w", err)
	}
	res.Created++
	s.events.Publish(ctx, event.ProductUpdated, p)
	return nil
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}

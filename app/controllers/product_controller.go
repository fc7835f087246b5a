package controllers

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// ProductService is implemented by *services.ProductService.
type ProductService interface {
	List(ctx context.Context, f repositories.ProductFilter) (*services.ProductPage, error)
	ListAll(ctx context.Context, f repositories.ProductFilter) (*services.ProductPage, error)
	Get(ctx context.Context, id primitive.ObjectID, admin bool) (*models.Product, error)
	Create(ctx context.Context, in services.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, in services.ProductInput) (*models.Product, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Product, error)
	SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) (*models.Product, error)
	AddImages(ctx context.Context, id primitive.ObjectID, files []storage.File) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.ReaderAt, size int64) (*services.ImportResult, error)
}

type ProductController struct {
	products ProductService
}

func NewProductController(products ProductService) *ProductController {
	return &ProductController{products: products}
}

func filter(c *ctx.Context) repositories.ProductFilter {
	page, limit := paging(c)
	f := repositories.ProductFilter{Query: strings.TrimSpace(c.Query("q")), Page: page, Limit: limit}
	if v, err := strconv.ParseBool(c.Query("featured")); err == nil {
		f.Featured = &v
	}
	return f
}

// Index lists active products. ?featured=true|false, ?q=, ?page=, ?limit=.
func (h *ProductController) Index(c *ctx.Context) {
	f := filter(c)
	res, err := h.products.List(c.Context(), f)
	if err != nil {
		c.Fail(err)
		return
	}
	paginated(c, res.Items, f.Page, f.Limit, res.Total)
}

func (h *ProductController) AdminIndex(c *ctx.Context) {
	f := filter(c)
	res, err := h.products.ListAll(c.Context(), f)
	if err != nil {
		c.Fail(err)
		return
	}
	paginated(c, res.Items, f.Page, f.Limit, res.Total)
}

func (h *ProductController) Show(c *ctx.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	p, err := h.products.Get(c.Context(), id, c.IsAdmin())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.products.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (h *ProductController) Update(c *ctx.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.products.Update(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Activate(c *ctx.Context) { h.setActive(c, true) }
func (h *ProductController) Archive(c *ctx.Context)  { h.setActive(c, false) }

func (h *ProductController) setActive(c *ctx.Context, active bool) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	p, err := h.products.SetActive(c.Context(), id, active)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

type featureRequest struct {
	IsFeatured *bool `json:"isFeatured" validate:"required"`
}

func (h *ProductController) Feature(c *ctx.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	var in featureRequest
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.products.SetFeatured(c.Context(), id, *in.IsFeatured)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// Images expects the files in the "images" form field.
func (h *ProductController) Images(c *ctx.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	files, ok := c.BindMultipart("", nil)
	if !ok {
		return
	}
	p, err := h.products.AddImages(c.Context(), id, uploads(files, "images"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product deleted")
}

// ─── Spreadsheet ──────────────────────────────────────────────────────────────

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *ProductController) Export(c *ctx.Context) {
	name := "products-" + time.Now().UTC().Format("20060102") + ".xlsx"
	if err := h.products.Export(c.Context(), c.Attachment(name, xlsxType)); err != nil {
		c.Fail(err)
	}
}

// Import expects the workbook in the "file" form field.
func (h *ProductController) Import(c *ctx.Context) {
	files, ok := c.BindMultipart("", nil)
	if !ok {
		return
	}
	fhs := files["file"]
	if len(fhs) != 1 {
		c.BadRequest("Upload exactly one .xlsx file in the file field")
		return
	}
	f, err := fhs[0].Open()
	if err != nil {
		c.Fail(err)
		return
	}
	defer f.Close()

	res, err := h.products.Import(c.Context(), f, fhs[0].Size)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

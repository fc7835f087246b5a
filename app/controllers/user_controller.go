package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// UserService is implemented by *services.UserService.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Confirm(ctx context.Context, email, code string) (*services.AuthResult, error)
	ResendCode(ctx context.Context, email string) error
	Login(ctx context.Context, identifier, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, username string) (*models.User, error)
	UploadProfilePicture(ctx context.Context, id primitive.ObjectID, f storage.File) (*models.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]models.User, int64, error)
	GetDelivery(ctx context.Context, id primitive.ObjectID) (*models.DeliveryDetails, error)
	SaveDelivery(ctx context.Context, id primitive.ObjectID, d models.DeliveryDetails) (*models.DeliveryDetails, error)
	GetWishlist(ctx context.Context, id primitive.ObjectID) ([]models.Product, error)
	AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) ([]primitive.ObjectID, error)
	RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type UserController struct {
	users UserService
}

func NewUserController(users UserService) *UserController {
	return &UserController{users: users}
}

type registerRequest struct {
	Username     string `json:"username"     validate:"required,min=3,max=30,alphanum"`
	Email        string `json:"email"        validate:"required,email"`
	Password     string `json:"password"     validate:"required,min=8,max=72"`
	CaptchaToken string `json:"captchaToken"`
}

type confirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// loginRequest accepts the identifier under any of its historical names.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password" validate:"required"`
}

func (r loginRequest) id() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	}
	return r.Username
}

type profileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

func (h *UserController) Register(c *ctx.Context) {
	var in registerRequest
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.users.Register(c.Context(), services.RegisterInput{
		Username:     in.Username,
		Email:        in.Email,
		Password:     in.Password,
		CaptchaToken: in.CaptchaToken,
		RemoteIP:     c.ClientIP(),
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]any{
		"message": "Registered. Check your email for the confirmation code.",
		"user":    u,
	})
}

func (h *UserController) Confirm(c *ctx.Context) {
	var in confirmRequest
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.users.Confirm(c.Context(), in.Email, in.Code)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

func (h *UserController) ResendCode(c *ctx.Context) {
	var in emailRequest
	if !c.BindJSON(&in) {
		return
	}
	if err := h.users.ResendCode(c.Context(), in.Email); err != nil {
		c.Fail(err)
		return
	}
	c.Message("A new confirmation code has been sent")
}

func (h *UserController) Login(c *ctx.Context) {
	var in loginRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.id() == "" {
		c.ValidationError(map[string]string{"identifier": "identifier is required"})
		return
	}
	res, err := h.users.Login(c.Context(), in.id(), in.Password)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

// ─── Profile ──────────────────────────────────────────────────────────────────

func (h *UserController) Me(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.users.Profile(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

func (h *UserController) UpdateMe(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	var in profileRequest
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.users.UpdateProfile(c.Context(), id, in.Username)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

// UploadPicture expects one file in the "picture" form field.
func (h *UserController) UploadPicture(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	files, ok := c.BindMultipart("", nil)
	if !ok {
		return
	}
	pics := uploads(files, "picture")
	if len(pics) != 1 {
		c.BadRequest("Upload exactly one file in the picture field")
		return
	}
	u, err := h.users.UploadProfilePicture(c.Context(), id, pics[0])
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

func (h *UserController) Index(c *ctx.Context) {
	page, limit := paging(c)
	users, total, err := h.users.ListUsers(c.Context(), page, limit)
	if err != nil {
		c.Fail(err)
		return
	}
	paginated(c, users, page, limit, total)
}

// ─── Delivery details ─────────────────────────────────────────────────────────

func (h *UserController) Delivery(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	d, err := h.users.GetDelivery(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(d)
}

func (h *UserController) SaveDelivery(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	var in models.DeliveryDetails
	if !c.BindJSON(&in) {
		return
	}
	d, err := h.users.SaveDelivery(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(d)
}

// ─── Wishlist ─────────────────────────────────────────────────────────────────

func (h *UserController) Wishlist(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.users.GetWishlist(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

func (h *UserController) AddToWishlist(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}
	ids, err := h.users.AddToWishlist(c.Context(), id, pid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(ids)
}

func (h *UserController) RemoveFromWishlist(c *ctx.Context) {
	id, ok := currentUser(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}
	ids, err := h.users.RemoveFromWishlist(c.Context(), id, pid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(ids)
}

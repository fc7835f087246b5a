package controllers

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// ReviewService is implemented by *services.ReviewService.
type ReviewService interface {
	CreateReview(ctx context.Context, userID primitive.ObjectID, in services.ReviewInput) (*models.Review, error)
	VoteReview(ctx context.Context, reviewID, userID primitive.ObjectID, vote string) (*models.Review, error)
	ReplyToReview(ctx context.Context, reviewID, adminID primitive.ObjectID, text string) (*models.Review, error)
	SetReviewHidden(ctx context.Context, reviewID primitive.ObjectID, hidden bool) (*models.Review, error)
	ReportReview(ctx context.Context, reviewID, userID primitive.ObjectID, reason string) (*models.Review, error)
	ListProductReviews(ctx context.Context, productID primitive.ObjectID) (*services.ProductReviews, error)
	ListMyReviews(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error)
	ListReportedReviews(ctx context.Context) ([]models.Review, error)
	DeleteReview(ctx context.Context, reviewID, requesterID primitive.ObjectID, isAdmin bool) error
}

type ReviewController struct {
	reviews ReviewService
}

func NewReviewController(reviews ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

type reviewRequest struct {
	ProductID   string   `json:"productId"   validate:"required,len=24,hexadecimal"`
	OrderID     string   `json:"orderId"     validate:"required,len=24,hexadecimal"`
	Rating      int      `json:"rating"      validate:"required,min=1,max=5"`
	Comment     string   `json:"comment"     validate:"max=2000"`
	Tags        []string `json:"tags"        validate:"max=10,dive,max=30"`
	IsAnonymous bool     `json:"isAnonymous"`
}

// Create takes either a JSON body or a multipart form carrying the JSON
// document in the "review" field and up to five files in "images".
func (h *ReviewController) Create(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var (
		in     reviewRequest
		images []storage.File
	)
	if strings.HasPrefix(c.Header("Content-Type"), "multipart/form-data") {
		files, ok := c.BindMultipart("review", &in)
		if !ok {
			return
		}
		images = uploads(files, "images")
	} else if !c.BindJSON(&in) {
		return
	}

	pid, err := services.ParseID(in.ProductID, "product")
	if err != nil {
		c.Fail(err)
		return
	}
	oid, err := services.ParseID(in.OrderID, "order")
	if err != nil {
		c.Fail(err)
		return
	}
	rv, err := h.reviews.CreateReview(c.Context(), uid, services.ReviewInput{
		ProductID:   pid,
		OrderID:     oid,
		Rating:      in.Rating,
		Comment:     in.Comment,
		Tags:        in.Tags,
		IsAnonymous: in.IsAnonymous,
		Images:      images,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(rv)
}

func (h *ReviewController) ForProduct(c *ctx.Context) {
	pid, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}
	res, err := h.reviews.ListProductReviews(c.Context(), pid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

func (h *ReviewController) Mine(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.reviews.ListMyReviews(c.Context(), uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

func (h *ReviewController) Reported(c *ctx.Context) {
	list, err := h.reviews.ListReportedReviews(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

type voteRequest struct {
	Vote string `json:"vote" validate:"required,oneof=helpful notHelpful"`
}

func (h *ReviewController) Vote(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "review")
	if !ok {
		return
	}
	var in voteRequest
	if !c.BindJSON(&in) {
		return
	}
	rv, err := h.reviews.VoteReview(c.Context(), id, uid, in.Vote)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(rv)
}

type replyRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (h *ReviewController) Reply(c *ctx.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "review")
	if !ok {
		return
	}
	var in replyRequest
	if !c.BindJSON(&in) {
		return
	}
	rv, err := h.reviews.ReplyToReview(c.Context(), id, admin, in.Text)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(rv)
}

type hiddenRequest struct {
	Hidden *bool `json:"hidden" validate:"required"`
}

func (h *ReviewController) SetHidden(c *ctx.Context) {
	id, ok := pathID(c, "id", "review")
	if !ok {
		return
	}
	var in hiddenRequest
	if !c.BindJSON(&in) {
		return
	}
	rv, err := h.reviews.SetReviewHidden(c.Context(), id, *in.Hidden)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(rv)
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *ReviewController) Report(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "review")
	if !ok {
		return
	}
	var in reportRequest
	if !c.BindJSON(&in) {
		return
	}
	if _, err := h.reviews.ReportReview(c.Context(), id, uid, in.Reason); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Review reported")
}

func (h *ReviewController) Destroy(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "review")
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(c.Context(), id, uid, c.IsAdmin()); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Review deleted")
}

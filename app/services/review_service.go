package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

// MaxReviewImages caps the images attached to one review.
const MaxReviewImages = 5

// ReviewService handles reviews of delivered purchases.
type ReviewService struct {
	reviews repositories.ReviewRepository
	orders  repositories.OrderRepository
	users   repositories.UserRepository
	disk    storage.Disk
	pool    *workerpool.Pool
}

func NewReviewService(reviews repositories.ReviewRepository, orders repositories.OrderRepository,
	users repositories.UserRepository, disk storage.Disk, pool *workerpool.Pool) *ReviewService {
	return &ReviewService{reviews: reviews, orders: orders, users: users, disk: disk, pool: pool}
}

// ReviewInput is a new review.
type ReviewInput struct {
	ProductID   primitive.ObjectID
	OrderID     primitive.ObjectID
	Rating      int
	Comment     string
	Tags        []string
	IsAnonymous bool
	Images      []storage.File
}

// CreateReview stores a review for a product of a delivered order owned by
// userID. Images are uploaded first; a duplicate review removes them again.
func (s *ReviewService) CreateReview(ctx context.Context, userID primitive.ObjectID, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.BadRequest("Rating must be between 1 and 5")
	}
	if len(in.Images) > MaxReviewImages {
		return nil, apperr.BadRequest("At most %d images per review", MaxReviewImages)
	}
	for _, f := range in.Images {
		if !f.IsImage() {
			return nil, apperr.BadRequest("%s is not an image", f.Name)
		}
	}

	if _, err := s.orders.FindDelivered(ctx, in.OrderID, userID, in.ProductID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.BadRequest("You can only review products from your delivered orders")
		}
		return nil, fmt.Errorf("reviews: check order: %w", err)
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User not found", "reviews: load user")
	}

	urls := []string{}
	if len(in.Images) > 0 {
		urls, err = storage.PutAll(ctx, s.disk, s.pool, "reviews", in.Images)
		if err != nil {
			return nil, apperr.Wrap(http.StatusInternalServerError, err, "Image upload failed")
		}
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	rv := &models.Review{
		UserID:      userID,
		Username:    u.Username,
		ProductID:   in.ProductID,
		OrderID:     in.OrderID,
		Rating:      in.Rating,
		Comment:     in.Comment,
		Images:      urls,
		Tags:        tags,
		IsAnonymous: in.IsAnonymous,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if derr := storage.DeleteURLs(context.WithoutCancel(ctx), s.disk, urls); derr != nil {
			logger.WithCtx(ctx).Warn("reviews: orphaned images", "urls", urls, "error", derr)
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.BadRequest("You have already reviewed this product for this order")
		}
		return nil, fmt.Errorf("reviews: create: %w", err)
	}

	metrics.Reviews.WithLabelValues("create").Inc()
	return rv, nil
}

// VoteReview toggles the user's helpful/notHelpful vote.
func (s *ReviewService) VoteReview(ctx context.Context, reviewID, userID primitive.ObjectID, vote string) (*models.Review, error) {
	if vote != models.VoteHelpful && vote != models.VoteNotHelpful {
		return nil, apperr.BadRequest("Vote must be %q or %q", models.VoteHelpful, models.VoteNotHelpful)
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		rv, err := s.reviews.FindByID(ctx, reviewID)
		if err != nil {
			return nil, notFound(err, "Review not found", "reviews: load")
		}
		prev := rv.UpdatedAt
		rv.ApplyVote(userID, vote)

		err = s.reviews.SaveVotes(ctx, rv, prev)
		if errors.Is(err, repositories.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reviews: vote: %w", err)
		}
		metrics.Reviews.WithLabelValues("vote").Inc()
		return rv, nil
	}
	return nil, apperr.Conflict("Review was modified concurrently, please retry")
}

func (s *ReviewService) ReplyToReview(ctx context.Context, reviewID, adminID primitive.ObjectID, text string) (*models.Review, error) {
	if text == "" {
		return nil, apperr.BadRequest("Reply text is required")
	}
	rv, err := s.reviews.SetReply(ctx, reviewID, models.Reply{Text: text, AdminID: adminID})
	if err != nil {
		return nil, notFound(err, "Review not found", "reviews: reply")
	}
	metrics.Reviews.WithLabelValues("reply").Inc()
	return rv, nil
}

func (s *ReviewService) SetReviewHidden(ctx context.Context, reviewID primitive.ObjectID, hidden bool) (*models.Review, error) {
	rv, err := s.reviews.SetHidden(ctx, reviewID, hidden)
	if err != nil {
		return nil, notFound(err, "Review not found", "reviews: hide")
	}
	metrics.Reviews.WithLabelValues("hide").Inc()
	return rv, nil
}

// ReportReview flags a review; each user may report it once.
func (s *ReviewService) ReportReview(ctx context.Context, reviewID, userID primitive.ObjectID, reason string) (*models.Review, error) {
	if reason == "" {
		return nil, apperr.BadRequest("A reason is required")
	}
	rv, err := s.reviews.AddReport(ctx, reviewID, models.Report{UserID: userID, Reason: reason})
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperr.BadRequest("You have already reported this review")
	}
	if err != nil {
		return nil, notFound(err, "Review not found", "reviews: report")
	}
	metrics.Reviews.WithLabelValues("report").Inc()
	return rv, nil
}

// ProductReviews is the public listing of a product's reviews.
type ProductReviews struct {
	Reviews       []models.Review `json:"reviews"`
	Count         int             `json:"count"`
	AverageRating float64         `json:"averageRating"`
}

func (s *ReviewService) ListProductReviews(ctx context.Context, productID primitive.ObjectID) (*ProductReviews, error) {
	list, err := s.reviews.FindByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	out := &ProductReviews{Reviews: make([]models.Review, len(list)), Count: len(list)}
	sum := 0
	for i, rv := range list {
		out.Reviews[i] = rv.Masked()
		sum += rv.Rating
	}
	if len(list) > 0 {
		out.AverageRating = models.Round2(float64(sum) / float64(len(list)))
	}
	return out, nil
}

func (s *ReviewService) ListMyReviews(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	list, err := s.reviews.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reviews: list mine: %w", err)
	}
	return list, nil
}

func (s *ReviewService) ListReportedReviews(ctx context.Context) ([]models.Review, error) {
	list, err := s.reviews.FindReported(ctx)
	if err != nil {
		return nil, fmt.Errorf("reviews: list reported: %w", err)
	}
	return list, nil
}

// DeleteReview removes a review and its images; owner or admin only.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, requesterID primitive.ObjectID, isAdmin bool) error {
	rv, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return notFound(err, "Review not found", "reviews: load")
	}
	if !isAdmin && rv.UserID != requesterID {
		return apperr.Forbidden("Not authorized to delete this review")
	}
	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return notFound(err, "Review not found", "reviews: delete")
	}
	if err := storage.DeleteURLs(ctx, s.disk, rv.Images); err != nil {
		logger.WithCtx(ctx).Warn("reviews: delete images", "review_id", reviewID.Hex(), "error", err)
	}
	metrics.Reviews.WithLabelValues("delete").Inc()
	return nil
}

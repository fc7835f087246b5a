package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/captcha"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

// CodeTTL is how long a confirmation code stays valid.
const CodeTTL = 15 * time.Minute

// MaxConfirmAttempts is how many wrong codes burn the current one. A new
// code must then be requested with ResendCode.
const MaxConfirmAttempts = 5

// UserService covers accounts, delivery details and the wishlist.
type UserService struct {
	users    repositories.UserRepository
	delivery repositories.DeliveryRepository
	products repositories.ProductRepository
	captcha  captcha.Verifier
	mailer   mail.Mailer
	disk     storage.Disk
	pool     *workerpool.Pool
}

type UserDeps struct {
	Users    repositories.UserRepository
	Delivery repositories.DeliveryRepository
	Products repositories.ProductRepository
	Captcha  captcha.Verifier
	Mailer   mail.Mailer
	Disk     storage.Disk
	Pool     *workerpool.Pool
}

func NewUserService(d UserDeps) *UserService {
	return &UserService{
		users:    d.Users,
		delivery: d.Delivery,
		products: d.Products,
		captcha:  d.Captcha,
		mailer:   d.Mailer,
		disk:     d.Disk,
		pool:     d.Pool,
	}
}

// AuthResult is returned by Login and Confirm.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ─── Registration ─────────────────────────────────────────────────────────────

type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	CaptchaToken string
	RemoteIP     string
}

// Register creates an unverified account and emails its confirmation code.
// If the email cannot be sent the account is removed again.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
			if errors.Is(err, captcha.ErrRejected) {
				return nil, apperr.BadRequest("CAPTCHA verification failed")
			}
			return nil, apperr.Wrap(http.StatusServiceUnavailable, err, "CAPTCHA service unavailable")
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	code, err := newCode()
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:            strings.TrimSpace(in.Username),
		Email:               normalizeEmail(in.Email),
		Password:            hash,
		ConfirmationCode:    code,
		ConfirmationExpires: time.Now().UTC().Add(CodeTTL),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email already in use")
		}
		return nil, fmt.Errorf("users: register: %w", err)
	}

	if err := s.sendCode(ctx, u, code); err != nil {
		if derr := s.users.Delete(context.WithoutCancel(ctx), u.ID); derr != nil {
			logger.WithCtx(ctx).Error("users: remove after failed email", "user_id", u.ID.Hex(), "error", derr)
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, err, "Could not send the confirmation email, please try again")
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID.Hex())
	return u, nil
}

// Confirm verifies the emailed code and logs the user in.
func (s *UserService) Confirm(ctx context.Context, email, code string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.BadRequest("Invalid or expired confirmation code")
	}
	if err != nil {
		return nil, fmt.Errorf("users: confirm: %w", err)
	}
	if u.EmailVerified {
		return nil, apperr.BadRequest("Email already confirmed")
	}
	if u.ConfirmationCode == "" || time.Now().After(u.ConfirmationExpires) {
		return nil, apperr.BadRequest("Invalid or expired confirmation code")
	}
	if subtle.ConstantTimeCompare([]byte(u.ConfirmationCode), []byte(code)) != 1 {
		return nil, s.confirmFailed(ctx, u)
	}

	u, err = s.users.Update(ctx, u.ID, bson.M{"emailVerified": true, "confirmationCode": "", "confirmAttempts": 0})
	if err != nil {
		return nil, fmt.Errorf("users: confirm: %w", err)
	}
	return s.issue(u)
}

func (s *UserService) confirmFailed(ctx context.Context, u *models.User) error {
	n, err := s.users.IncConfirmAttempts(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("users: confirm: %w", err)
	}
	if n < MaxConfirmAttempts {
		return apperr.BadRequest("Invalid or expired confirmation code")
	}
	if _, err := s.users.Update(ctx, u.ID, bson.M{"confirmationCode": ""}); err != nil {
		return fmt.Errorf("users: confirm: %w", err)
	}
	logger.WithCtx(ctx).Warn("confirmation code burned", "user_id", u.ID.Hex(), "attempts", n)
	return apperr.New(http.StatusTooManyRequests, "Too many wrong codes, request a new one")
}

// ResendCode issues a fresh code for an unverified account.
func (s *UserService) ResendCode(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return notFound(err, "User not found", "users: resend")
	}
	if u.EmailVerified {
		return apperr.BadRequest("Email already confirmed")
	}
	code, err := newCode()
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, u.ID, bson.M{
		"confirmationCode":    code,
		"confirmationExpires": time.Now().UTC().Add(CodeTTL),
		"confirmAttempts":     0,
	}); err != nil {
		return fmt.Errorf("users: resend: %w", err)
	}
	if err := s.sendCode(ctx, u, code); err != nil {
		return apperr.Wrap(http.StatusInternalServerError, err, "Could not send the confirmation email, please try again")
	}
	return nil
}

// Login accepts an email or a username.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		id = normalizeEmail(id)
	}
	u, err := s.users.FindByLogin(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("users: login: %w", err)
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !u.EmailVerified {
		return nil, apperr.Unauthorized("Please confirm your email before logging in")
	}
	return s.issue(u)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(u.ID.Hex(), u.Email, u.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("users: token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *UserService) sendCode(ctx context.Context, u *models.User, code string) error {
	html, err := mail.Render("confirm", map[string]any{
		"Username": u.Username,
		"Code":     code,
		"Minutes":  int(CodeTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mail.Message{To: []string{u.Email}, Subject: "Confirm your email", HTML: html})
}

// newCode returns a random 6-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("users: confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// ─── Profile ──────────────────────────────────────────────────────────────────

func (s *UserService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found", "users: profile")
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, username string) (*models.User, error) {
	u, err := s.users.Update(ctx, id, bson.M{"username": strings.TrimSpace(username)})
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperr.Conflict("Username already in use")
	}
	if err != nil {
		return nil, notFound(err, "User not found", "users: update profile")
	}
	return u, nil
}

// UploadProfilePicture stores f and replaces the previous picture.
func (s *UserService) UploadProfilePicture(ctx context.Context, id primitive.ObjectID, f storage.File) (*models.User, error) {
	if !f.IsImage() {
		return nil, apperr.BadRequest("%s is not an image", f.Name)
	}
	old, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found", "users: picture")
	}

	urls, err := storage.PutAll(ctx, s.disk, s.pool, "avatars", []storage.File{f})
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, err, "Image upload failed")
	}
	u, err := s.users.Update(ctx, id, bson.M{"profilePicture": urls[0]})
	if err != nil {
		_ = storage.DeleteURLs(context.WithoutCancel(ctx), s.disk, urls)
		return nil, notFound(err, "User not found", "users: picture")
	}
	if old.ProfilePicture != "" {
		if err := storage.DeleteURLs(ctx, s.disk, []string{old.ProfilePicture}); err != nil {
			logger.WithCtx(ctx).Warn("users: delete old picture", "error", err)
		}
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return users, total, nil
}

// ─── Delivery details ─────────────────────────────────────────────────────────

func (s *UserService) GetDelivery(ctx context.Context, id primitive.ObjectID) (*models.DeliveryDetails, error) {
	d, err := s.delivery.FindByUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "No delivery details saved", "users: delivery")
	}
	return d, nil
}

func (s *UserService) SaveDelivery(ctx context.Context, id primitive.ObjectID, d models.DeliveryDetails) (*models.DeliveryDetails, error) {
	d.UserID = id
	if err := s.delivery.Upsert(ctx, &d); err != nil {
		return nil, fmt.Errorf("users: save delivery: %w", err)
	}
	return &d, nil
}

// ─── Wishlist ─────────────────────────────────────────────────────────────────

func (s *UserService) GetWishlist(ctx context.Context, id primitive.ObjectID) ([]models.Product, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found", "wishlist: load user")
	}
	products, err := s.products.FindByIDs(ctx, u.Wishlist)
	if err != nil {
		return nil, fmt.Errorf("wishlist: load products: %w", err)
	}
	return products, nil
}

func (s *UserService) AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) ([]primitive.ObjectID, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, notFound(err, "Product not found", "wishlist: load product")
	}
	u, err := s.users.AddToWishlist(ctx, id, productID)
	if err != nil {
		return nil, notFound(err, "User not found", "wishlist: add")
	}
	return u.Wishlist, nil
}

func (s *UserService) RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) ([]primitive.ObjectID, error) {
	u, err := s.users.RemoveFromWishlist(ctx, id, productID)
	if err != nil {
		return nil, notFound(err, "User not found", "wishlist: remove")
	}
	return u.Wishlist, nil
}

package services_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/captcha"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

type userFixture struct {
	users    *fakeUsers
	products *fakeProducts
	mailer   *fakeMailer
	captcha  *fakeCaptcha
	disk     *storage.LocalDisk
	svc      *services.UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:    newFakeUsers(),
		products: newFakeProducts(),
		mailer:   &fakeMailer{},
		captcha:  &fakeCaptcha{},
		disk:     newDisk(t),
	}
	pool := workerpool.New(1)
	t.Cleanup(pool.Shutdown)
	f.svc = services.NewUserService(services.UserDeps{
		Users:    f.users,
		Delivery: newFakeDelivery(),
		Products: f.products,
		Captcha:  f.captcha,
		Mailer:   f.mailer,
		Disk:     f.disk,
		Pool:     pool,
	})
	return f
}

func registration() services.RegisterInput {
	return services.RegisterInput{Username: "ana", Email: " Ana@Example.com ", Password: "s3cret!!", CaptchaToken: "tok"}
}

func (f *userFixture) register(t *testing.T) *models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), registration())
	require.NoError(t, err)
	return u
}

func (f *userFixture) code(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.ConfirmationCode
}

func TestRegisterSendsCode(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t)

	assert.Equal(t, "ana@example.com", u.Email)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "s3cret!!", u.Password)
	assert.True(t, auth.CheckPassword(u.Password, "s3cret!!"))

	code := f.code(t, u.ID)
	assert.Len(t, code, 6)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].HTML, code)
}

func TestRegisterFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("captcha rejected", func(t *testing.T) {
		f := newUserFixture(t)
		f.captcha.err = captcha.ErrRejected
		_, err := f.svc.Register(ctx, registration())
		assert.True(t, apperr.Is(err, http.StatusBadRequest))
	})

	t.Run("captcha unreachable", func(t *testing.T) {
		f := newUserFixture(t)
		f.captcha.err = errBoom
		_, err := f.svc.Register(ctx, registration())
		assert.True(t, apperr.Is(err, http.StatusServiceUnavailable))
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newUserFixture(t)
		f.register(t)
		_, err := f.svc.Register(ctx, registration())
		assert.True(t, apperr.Is(err, http.StatusConflict))
	})

	t.Run("mail failure removes the account", func(t *testing.T) {
		f := newUserFixture(t)
		f.mailer.err = errBoom
		_, err := f.svc.Register(ctx, registration())
		assert.True(t, apperr.Is(err, http.StatusInternalServerError))
		_, err = f.users.FindByEmail(ctx, "ana@example.com")
		assert.Error(t, err)
	})
}

func TestConfirmAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)

	_, err := f.svc.Login(ctx, "ana", "s3cret!!")
	assert.True(t, apperr.Is(err, http.StatusUnauthorized), "unverified")

	_, err = f.svc.Confirm(ctx, u.Email, "000000x")
	assert.True(t, apperr.Is(err, http.StatusBadRequest))

	res, err := f.svc.Confirm(ctx, "ANA@example.com", f.code(t, u.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.User.EmailVerified)

	_, err = f.svc.Confirm(ctx, u.Email, "123456")
	assert.True(t, apperr.Is(err, http.StatusBadRequest), "already confirmed")

	for _, ident := range []string{"ana", "Ana@Example.com"} {
		res, err = f.svc.Login(ctx, ident, "s3cret!!")
		require.NoError(t, err, ident)
		claims, err := auth.ValidateToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID.Hex(), claims.ID)
	}

	_, err = f.svc.Login(ctx, "ana", "wrong")
	assert.True(t, apperr.Is(err, http.StatusUnauthorized))
	_, err = f.svc.Login(ctx, "nobody", "s3cret!!")
	assert.True(t, apperr.Is(err, http.StatusUnauthorized))
}

func TestConfirmBurnsCodeAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)
	good := f.code(t, u.ID)

	for i := 1; i < services.MaxConfirmAttempts; i++ {
		_, err := f.svc.Confirm(ctx, u.Email, "wrong")
		assert.True(t, apperr.Is(err, http.StatusBadRequest), "attempt %d", i)
	}
	_, err := f.svc.Confirm(ctx, u.Email, "wrong")
	assert.True(t, apperr.Is(err, http.StatusTooManyRequests))
	assert.Empty(t, f.code(t, u.ID))

	// the right code no longer works once burned
	_, err = f.svc.Confirm(ctx, u.Email, good)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))

	require.NoError(t, f.svc.ResendCode(ctx, u.Email))
	fresh, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.ConfirmAttempts)

	_, err = f.svc.Confirm(ctx, u.Email, "wrong")
	assert.True(t, apperr.Is(err, http.StatusBadRequest), "counter restarts with a new code")
	res, err := f.svc.Confirm(ctx, u.Email, fresh.ConfirmationCode)
	require.NoError(t, err)
	assert.True(t, res.User.EmailVerified)
	assert.Zero(t, res.User.ConfirmAttempts)
}

func TestExpiredCodeAndResend(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)
	stale := f.code(t, u.ID)
	_, err := f.users.Update(ctx, u.ID, bson.M{"confirmationExpires": time.Now().UTC().Add(-time.Minute)})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, u.Email, stale)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))

	require.NoError(t, f.svc.ResendCode(ctx, u.Email))
	assert.Len(t, f.mailer.sent, 2)
	_, err = f.svc.Confirm(ctx, u.Email, f.code(t, u.ID))
	require.NoError(t, err)

	err = f.svc.ResendCode(ctx, u.Email)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
	err = f.svc.ResendCode(ctx, "ghost@example.com")
	assert.True(t, apperr.Is(err, http.StatusNotFound))
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)
	f.users.add(models.User{Username: "taken", Email: "t@example.com"})

	got, err := f.svc.UpdateProfile(ctx, u.ID, " ana2 ")
	require.NoError(t, err)
	assert.Equal(t, "ana2", got.Username)

	_, err = f.svc.UpdateProfile(ctx, u.ID, "taken")
	assert.True(t, apperr.Is(err, http.StatusConflict))

	_, err = f.svc.Profile(ctx, primitive.NewObjectID())
	assert.True(t, apperr.Is(err, http.StatusNotFound))
}

func TestUploadProfilePictureReplacesOld(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)
	pic := func(body string) storage.File {
		return storage.File{Name: "me.png", ContentType: "image/png",
			Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(pngHeader + body)), nil }}
	}

	_, err := f.svc.UploadProfilePicture(ctx, u.ID, storage.File{Name: "me.txt", ContentType: "text/plain"})
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
	disguised := storage.File{Name: "me.png", ContentType: "image/png",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("#!/bin/sh\nrm -rf /")), nil }}
	_, err = f.svc.UploadProfilePicture(ctx, u.ID, disguised)
	assert.True(t, apperr.Is(err, http.StatusBadRequest), "declared type alone is not enough")

	first, err := f.svc.UploadProfilePicture(ctx, u.ID, pic("one"))
	require.NoError(t, err)
	second, err := f.svc.UploadProfilePicture(ctx, u.ID, pic("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ProfilePicture, second.ProfilePicture)

	oldKey, ok := f.disk.Key(first.ProfilePicture)
	require.True(t, ok)
	assert.False(t, f.disk.Exists(ctx, oldKey))
	newKey, ok := f.disk.Key(second.ProfilePicture)
	require.True(t, ok)
	assert.True(t, f.disk.Exists(ctx, newKey))
}

func TestDeliveryDetails(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	id := primitive.NewObjectID()

	_, err := f.svc.GetDelivery(ctx, id)
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	_, err = f.svc.SaveDelivery(ctx, id, models.DeliveryDetails{FullName: "Ana", City: "Porto"})
	require.NoError(t, err)
	_, err = f.svc.SaveDelivery(ctx, id, models.DeliveryDetails{FullName: "Ana", City: "Lisbon"})
	require.NoError(t, err)

	d, err := f.svc.GetDelivery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", d.City)
}

func TestWishlist(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.register(t)
	p := f.products.add(models.Product{Name: "Hat", IsActive: true})

	_, err := f.svc.AddToWishlist(ctx, u.ID, primitive.NewObjectID())
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	ids, err := f.svc.AddToWishlist(ctx, u.ID, p)
	require.NoError(t, err)
	ids, err = f.svc.AddToWishlist(ctx, u.ID, p)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p}, ids)

	list, err := f.svc.GetWishlist(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Hat", list[0].Name)

	ids, err = f.svc.RemoveFromWishlist(ctx, u.ID, p)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

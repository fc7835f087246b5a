package ctx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	appctx "github.com/shashiranjanraj/storefront/pkg/ctx"
)

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"totalPrice": 200})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"totalPrice":200}}`, rec.Body.String())
}

func TestParam(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		got = c.Param("id")
		c.Status(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc123", nil))
	assert.Equal(t, "abc123", got)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&limit=x&featured=true", nil)
	serve(req, func(c *appctx.Context) {
		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 20, c.QueryInt("limit", 20))
		assert.True(t, c.QueryBool("featured"))
		assert.Equal(t, "all", c.DefaultQuery("q", "all"))
	})
}

func TestBindJSONValidation(t *testing.T) {
	type input struct {
		Quantity int `json:"quantity" validate:"gte=1"`
	}
	req := httptest.NewRequest(http.MethodPut, "/cart", strings.NewReader(`{"quantity":0}`))

	var ok bool
	rec := serve(req, func(c *appctx.Context) {
		var in input
		ok = c.BindJSON(&in)
	})

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quantity"`)
}

func TestBindJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/cart", strings.NewReader(`{`))
	rec := serve(req, func(c *appctx.Context) {
		var in map[string]any
		c.BindJSON(&in)
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFail(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodPut, "/", nil), func(c *appctx.Context) {
		c.Fail(apperr.BadRequest("only 10 left in stock"))
		assert.Equal(t, http.StatusBadRequest, c.WrittenStatus())
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only 10 left in stock")

	rec = serve(httptest.NewRequest(http.MethodPut, "/", nil), func(c *appctx.Context) {
		c.Fail(errors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	serve(req, func(c *appctx.Context) {
		assert.Empty(t, c.UserID())
		assert.False(t, c.IsAdmin())
	})

	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{ID: "u1", IsAdmin: true}))
	serve(req, func(c *appctx.Context) {
		assert.Equal(t, "u1", c.UserID())
		assert.True(t, c.IsAdmin())
	})
}

func TestStoreIsResetBetweenRequests(t *testing.T) {
	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Set("request_id", "first")
		assert.Equal(t, "first", c.GetString("request_id"))
	})
	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		_, ok := c.Get("request_id")
		assert.False(t, ok)
	})
}

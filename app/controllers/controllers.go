// Package controllers adapts HTTP requests to the services. Each controller
// depends on the narrow slice of a service it calls.
package controllers

import (
	"mime/multipart"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// currentUser returns the authenticated user's id. It answers 401 and
// returns false when the token carries no usable id.
func currentUser(c *ctx.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.UserID())
	if err != nil {
		c.Unauthorized("Not authorized, token failed")
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses the {param} path segment; a malformed id is a 400.
func pathID(c *ctx.Context, param, what string) (primitive.ObjectID, bool) {
	id, err := services.ParseID(c.Param(param), what)
	if err != nil {
		c.Fail(err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func paging(c *ctx.Context) (page, limit int) {
	return c.QueryInt("page", defaultPage), c.QueryInt("limit", defaultLimit)
}

func paginated(c *ctx.Context, items any, page, limit int, total int64) {
	c.Paginated(items, response.NewPage(page, limit, total))
}

func uploads(files map[string][]*multipart.FileHeader, field string) []storage.File {
	return storage.FromMultipart(files[field])
}

// Package response writes the JSON envelope every endpoint answers with:
//
//	{"status":200,"message":"...","data":{...},"errors":{...}}
package response

import (
	"encoding/json"
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Envelope is the body shape shared by all JSON responses.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Page describes one page of a listing.
type Page struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPage computes the page count for total items split by limit.
func NewPage(page, limit int, total int64) Page {
	p := Page{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.Pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}

func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Status: http.StatusCreated, Data: data})
}

// Message sends a 200 with only a message.
func Message(w http.ResponseWriter, message string) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Message: message})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Status: status, Message: message})
}

// ValidationError sends a 422 with field-level error map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusUnprocessableEntity, Envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Paginated sends a 200 response with items and page metadata.
func Paginated(w http.ResponseWriter, items any, page Page) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: map[string]any{
		"items":      items,
		"pagination": page,
	}})
}

// Fail answers with the status carried by err. Errors without one are
// logged against the request and reported as a bare 500.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, ok := apperr.StatusOf(err)
	if !ok {
		logger.WithCtx(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	} else if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error(msg, "error", err, "path", r.URL.Path)
	}
	Error(w, status, msg)
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Forbidden")
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

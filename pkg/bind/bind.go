// Package bind decodes and validates request bodies.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/validate"
)

// ErrNotMultipart is returned by Multipart for non multipart requests.
var ErrNotMultipart = errors.New("request is not multipart/form-data")

// JSON decodes r.Body into dest and validates it. Returns (errs, nil) on
// validation failures and (nil, err) for malformed or oversized bodies.
func JSON(r *http.Request, dest any) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxBodyBytes())
	if err := decode(r.Body, dest); err != nil {
		return nil, err
	}
	return check(dest)
}

// Multipart parses a multipart/form-data request. The JSON document in the
// form field named field (if present) is decoded into dest and validated;
// uploaded files are returned keyed by form field name.
func Multipart(r *http.Request, field string, dest any) (files map[string][]*multipart.FileHeader, errs map[string]string, err error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, nil, ErrNotMultipart
	}

	limit := config.MaxUploadBytes()
	r.Body = http.MaxBytesReader(nil, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, fmt.Errorf("upload too large (max %d bytes)", maxErr.Limit)
		}
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	if raw := r.MultipartForm.Value[field]; len(raw) > 0 && dest != nil {
		if err := decode(strings.NewReader(raw[0]), dest); err != nil {
			return nil, nil, err
		}
	}
	if dest != nil {
		if errs, _ := check(dest); errs != nil {
			return nil, errs, nil
		}
	}

	return r.MultipartForm.File, nil, nil
}

func decode(body io.Reader, dest any) error {
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func check(dest any) (map[string]string, error) {
	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

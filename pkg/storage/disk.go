// Package storage stores uploaded images on a local directory or an
// S3-compatible bucket (AWS S3, MinIO, R2, Spaces).
//
//	disk, err := storage.Open(ctx)          // STORAGE_DISK=local|s3
//	key := storage.NewKey("reviews", fh.Filename)
//	err = disk.Put(ctx, key, file, fh.Header.Get("Content-Type"))
//	url := disk.URL(key)
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for a missing object.
var ErrNotFound = errors.New("storage: object not found")

// Disk is the driver interface every backend implements.
type Disk interface {
	// Put writes r to key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Get opens the object at key. Caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) bool

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string

	// Key is the inverse of URL. ok is false for URLs this disk did not issue.
	Key(url string) (key string, ok bool)
}

// NewKey returns a collision-free object key under dir that keeps the
// original file extension: "reviews/2f1c...e9.jpg".
func NewKey(dir, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 {
		ext = ""
	}
	return path.Join(strings.Trim(dir, "/"), uuid.NewString()+ext)
}

func keyFromURL(baseURL, url string) (string, bool) {
	prefix := baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

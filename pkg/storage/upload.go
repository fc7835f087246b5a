package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

// File is an upload waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// sniffLen is how much of a file http.DetectContentType looks at.
const sniffLen = 512

// IsImage reports whether the file's leading bytes are an image. The
// client-declared ContentType is ignored.
func (f File) IsImage() bool {
	ct, err := f.Sniff()
	return err == nil && strings.HasPrefix(ct, "image/")
}

// Sniff detects the content type from the first bytes of the file.
func (f File) Sniff() (string, error) {
	if f.Open == nil {
		return "", errors.New("storage: file has no content")
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("storage: read %s: %w", f.Name, err)
	}
	return http.DetectContentType(buf[:n]), nil
}

// FromMultipart adapts multipart file headers.
func FromMultipart(fhs []*multipart.FileHeader) []File {
	out := make([]File, 0, len(fhs))
	for _, fh := range fhs {
		out = append(out, File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

// PutAll stores files under dir in parallel on pool and returns their URLs
// in input order. When any upload fails the ones that succeeded are deleted.
func PutAll(ctx context.Context, d Disk, pool *workerpool.Pool, dir string, files []File) ([]string, error) {
	urls := make([]string, len(files))
	g := pool.Group(ctx)
	for i, f := range files {
		g.Go(func(ctx context.Context) error {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("storage: open %s: %w", f.Name, err)
			}
			defer rc.Close()

			key := NewKey(dir, f.Name)
			if err := d.Put(ctx, key, rc, f.ContentType); err != nil {
				return fmt.Errorf("storage: put %s: %w", f.Name, err)
			}
			urls[i] = d.URL(key)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		stored := make([]string, 0, len(urls))
		for _, u := range urls {
			if u != "" {
				stored = append(stored, u)
			}
		}
		_ = DeleteURLs(context.WithoutCancel(ctx), d, stored)
		return nil, err
	}
	return urls, nil
}

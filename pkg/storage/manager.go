package storage

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/storefront/config"
)

// Open returns the disk named by STORAGE_DISK ("local" or "s3").
func Open(ctx context.Context) (Disk, error) {
	switch name := config.StorageDefault(); name {
	case "local", "":
		return NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
	case "s3":
		return NewS3Disk(ctx, S3Config{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		})
	default:
		return nil, fmt.Errorf("storage: unknown STORAGE_DISK %q (supported: local, s3)", name)
	}
}

// DeleteURLs removes the objects behind urls, skipping foreign ones, and
// returns the first error after trying all of them.
func DeleteURLs(ctx context.Context, d Disk, urls []string) error {
	var first error
	for _, u := range urls {
		key, ok := d.Key(u)
		if !ok {
			continue
		}
		if err := d.Delete(ctx, key); err != nil && first == nil {
			first = err
		}
	}
	return first
}

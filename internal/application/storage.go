package application

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// ImageStore keeps uploaded images and hands back their public URL.
type ImageStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

var allowedImageExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".svg":  "image/svg+xml",
}

// ImageObjectPath validates the file extension and builds a unique object path under dir.
func ImageObjectPath(dir, filename string) (objectPath, contentType string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	ct, ok := allowedImageExt[ext]
	if !ok {
		return "", "", validation.Details("image", "must be a jpg, jpeg, png or svg file")
	}
	return path.Join(dir, uuid.NewString()+ext), ct, nil
}

// GCSImageStore stores images in a Google Cloud Storage bucket.
type GCSImageStore struct {
	Client *storage.Client
	Bucket string
}

func NewGCSImageStore(client *storage.Client, bucket string) *GCSImageStore {
	return &GCSImageStore{Client: client, Bucket: bucket}
}

func (s *GCSImageStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if s == nil || s.Client == nil || s.Bucket == "" {
		return "", ErrUnavailable
	}
	return helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, contentType, r)
}

// Delete removes the object behind url; URLs outside the bucket are ignored.
func (s *GCSImageStore) Delete(ctx context.Context, url string) error {
	if s == nil || s.Client == nil || url == "" {
		return nil
	}
	objectPath, ok := helpers.ObjectPathFromURL(s.Bucket, url)
	if !ok {
		return nil
	}
	return helpers.DeleteObject(ctx, s.Client, s.Bucket, objectPath)
}

package storage

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

const imageContentType = "image/jpeg"

type ObjectWriter interface {
	Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error
}

// ImageUploader stores request images under <bucket>/<folder>/<file name>.
type ImageUploader struct {
	objects ObjectWriter
	bucket  string
	folder  string
}

func NewImageUploader(objects ObjectWriter, bucket, folder string) *ImageUploader {
	return &ImageUploader{
		objects: objects,
		bucket:  bucket,
		folder:  strings.Trim(folder, "/"),
	}
}

// UploadImage uploads data and returns its public URL. Every upload is
// tagged image/jpeg regardless of the actual format.
func (u *ImageUploader) UploadImage(ctx context.Context, fileName string, data []byte) (string, error) {
	object := u.ObjectName(fileName)
	if err := u.objects.Upload(ctx, u.bucket, object, data, imageContentType); err != nil {
		return "", err
	}
	return PublicURL(u.bucket, object), nil
}

// ObjectName maps a client file name to its object path. Directory parts are
// dropped; a missing name becomes a random UUID.
func (u *ImageUploader) ObjectName(fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = uuid.NewString()
	}
	if u.folder == "" {
		return name
	}
	return u.folder + "/" + name
}

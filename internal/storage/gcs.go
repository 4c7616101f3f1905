package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
)

const publicHost = "https://storage.googleapis.com"

// Client wraps a Google Cloud Storage client. Credentials come from the
// environment (Application Default Credentials).
type Client struct {
	gcs *gcs.Client
}

func NewClient(ctx context.Context) (*Client, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{gcs: c}, nil
}

// DownloadToFile streams bucket/object into localPath. The data lands in a
// temporary file next to localPath first and is renamed into place once
// complete.
func (c *Client) DownloadToFile(ctx context.Context, bucket, object, localPath string) error {
	r, err := c.gcs.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	return writeFileAtomic(localPath, r)
}

func (c *Client) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	w := c.gcs.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.gcs.Close()
}

// PublicURL builds the storage.googleapis.com URL for an object. The object
// name is used verbatim, the same string that is stored with the prediction.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, object)
}

func writeFileAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

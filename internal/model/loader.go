package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

type Downloader interface {
	DownloadToFile(ctx context.Context, bucket, object, localPath string) error
}

// EnsureModel downloads bucket/object to localPath unless a file is already
// there. It does not retry.
func EnsureModel(ctx context.Context, d Downloader, bucket, object, localPath string, logger logrus.FieldLogger) error {
	info, err := os.Stat(localPath)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("model path %s is a directory", localPath)
	case err == nil:
		logger.WithField("path", localPath).Info("model already present, skipping download")
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat model path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	if err := d.DownloadToFile(ctx, bucket, object, localPath); err != nil {
		return fmt.Errorf("download model gs://%s/%s: %w", bucket, object, err)
	}

	logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"object": object,
		"path":   localPath,
	}).Info("model downloaded")
	return nil
}

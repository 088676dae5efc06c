package util

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
)

var GCSClient *storage.Client

// InitStorage creates the shared GCS client. Call once at startup after
// LoadSettings; skipped silently when no bucket is configured (DEV without
// uploads).
func InitStorage() error {
	if Settings.StorageBucket == "" {
		return nil
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return fmt.Errorf("storage client: %w", err)
	}
	GCSClient = client
	return nil
}

// UploadObject streams r into the materials bucket under key and returns the
// object's public URL.
func UploadObject(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if GCSClient == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	w := GCSClient.Bucket(Settings.StorageBucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", Settings.StorageBucket, url.PathEscape(key)), nil
}

// SignedDownloadURL returns a short-lived GET URL for the stored object.
func SignedDownloadURL(key string, ttl time.Duration) (string, error) {
	if GCSClient == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	return GCSClient.Bucket(Settings.StorageBucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
}

// DeleteObject removes an uploaded material from the bucket.
func DeleteObject(ctx context.Context, key string) error {
	if GCSClient == nil {
		return fmt.Errorf("object storage not configured")
	}
	return GCSClient.Bucket(Settings.StorageBucket).Object(key).Delete(ctx)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Uploader = (*GCSStorage)(nil)

// NewGCSStorage uses Application Default Credentials unless opts say otherwise.
func NewGCSStorage(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload copies the deck at localPath to the bucket and returns its gs:// URL.
func (s *GCSStorage) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open deck: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := objectName(s.prefix, localPath)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = pptxContentType

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload deck: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return gsURL(s.bucket, name), nil
}

// ListDecks returns the object names of every deck under the prefix.
func (s *GCSStorage) ListDecks(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.prefix}

	var decks []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if strings.EqualFold(path.Ext(attrs.Name), DeckExt) {
			decks = append(decks, attrs.Name)
		}
	}
	return decks, nil
}

// Clear deletes every deck under the prefix.
func (s *GCSStorage) Clear(ctx context.Context) (int, error) {
	decks, err := s.ListDecks(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range decks {
		if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
			return removed, fmt.Errorf("delete %s: %w", gsURL(s.bucket, name), err)
		}
		removed++
	}
	return removed, nil
}

func objectName(prefix, localPath string) string {
	base := filepath.Base(localPath)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

func gsURL(bucket, name string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, name)
}

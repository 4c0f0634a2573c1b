package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// StorageBlob implements media.Blob on a Supabase storage bucket.
type StorageBlob struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageBlob(supabaseURL, serviceKey, bucket string) *StorageBlob {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return &StorageBlob{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

func (s *StorageBlob) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, r, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *StorageBlob) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

func (s *StorageBlob) Delete(_ context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

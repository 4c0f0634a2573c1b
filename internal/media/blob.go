// Package media stores finding photos and drawings in object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Blob is an object store that serves uploaded objects from a public URL.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

const (
	KindPhoto   = "photo"
	KindDrawing = "drawing"
)

// Key builds users/<owner>/findings/<finding>/<kind>/<filename>.
func Key(owner, findingID, kind, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("users/%s/findings/%s/%s/%s", owner, findingID, kind, name)
}

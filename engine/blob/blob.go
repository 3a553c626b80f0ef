// Package blob fetches stored document bytes by storage ref.
package blob

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
	"google.golang.org/api/option"
)

// DefaultBucket holds the scraped bill PDFs.
const DefaultBucket = "bill-pdfs"

var (
	ErrNotFound = errors.New("blob: not found")
	ErrBadRef   = errors.New("blob: bad storage ref")
)

// cleanRef rejects empty refs and refs that escape their root.
func cleanRef(ref string) (string, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrBadRef)
	}
	clean := path.Clean(ref)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return clean, nil
}

// Dir reads blobs from a local directory laid out like the bucket.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir { return &Dir{root: root} }

func (d *Dir) Fetch(_ context.Context, ref string) ([]byte, error) {
	clean, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return b, err
}

// GCS reads blobs from a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS opens a client for bucket. Objects are addressed as prefix/ref.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: gcs client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), prefix: strings.Trim(prefix, "/")}, nil
}

func (g *GCS) Fetch(ctx context.Context, ref string) ([]byte, error) {
	clean, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	name := clean
	if g.prefix != "" {
		name = g.prefix + "/" + clean
	}
	r, err := g.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Close releases the storage client.
func (g *GCS) Close() error { return g.client.Close() }

// Package files persists binary artifacts (uploads, certificates) under a
// public-servable root and hands back relative URLs.
//
// Storage names are collision resistant (timestamp + random id + normalized
// extension) so concurrent writers never need cross-request locking and
// client-supplied filenames never become storage paths.
package files

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"residency/pkg/requestcontext"
)

// Store is the durable artifact store. Implementations must make Delete
// idempotent: deleting an absent artifact is not an error.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (Ref, error)
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
}

// Ref is the retrieval reference returned for a persisted artifact. URL is a
// relative path rooted at the store's public directory.
type Ref struct {
	StoragePath string
	URL         string
}

// ErrNotFound is returned by Open for a missing artifact. Delete treats
// absence as success.
var ErrNotFound = errors.New("file not found")

// LocalStore writes artifacts to a directory on the local filesystem.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore builds a store rooted at dir and provisions the directory.
// Directory creation is explicit startup work, never a lazy first-use side
// effect.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("provision storage dir %s: %w", dir, err)
	}
	return &LocalStore{root: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save streams r into a freshly named file and returns its reference. On any
// write failure the partial file is removed so no record can ever point at a
// half-written artifact.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (Ref, error) {
	name := StorageName(ctx, originalName)
	full := filepath.Join(s.root, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Ref{}, fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return Ref{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return Ref{}, fmt.Errorf("close %s: %w", name, err)
	}

	return Ref{StoragePath: full, URL: path.Join(s.urlPrefix, name)}, nil
}

// Open returns the artifact contents for reading.
func (s *LocalStore) Open(_ context.Context, storagePath string) (io.ReadCloser, error) {
	f, err := os.Open(storagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", storagePath, err)
	}
	return f, nil
}

// Delete removes the artifact. Absence is not an error.
func (s *LocalStore) Delete(_ context.Context, storagePath string) error {
	if err := os.Remove(storagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", storagePath, err)
	}
	return nil
}

// StorageName derives a collision-resistant storage filename. Only the
// extension of the original name survives, lowercased; everything else is
// replaced by the request timestamp and a random identifier.
func StorageName(ctx context.Context, originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for naming; fall back to a
		// nanosecond suffix rather than panic in a request path.
		return fmt.Sprintf("%d%s", requestcontext.Now(ctx).UnixNano(), ext)
	}
	return fmt.Sprintf("%d-%s%s", requestcontext.Now(ctx).UnixMilli(), hex.EncodeToString(buf), ext)
}

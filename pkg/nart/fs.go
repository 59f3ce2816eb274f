package nart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem. The default backend for
// single-node deployments; artifact keys map directly to paths under root.
type FSStore struct {
	root string
}

// NewFSStore creates an FSStore rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Upload stores data under key. Existing keys are never overwritten.
func (s *FSStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string, metadata map[string]string) (*Artifact, error) {
	path := s.path(key)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating artifact: %w", err)
	}
	size, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing artifact: %w", err)
	}

	if len(metadata) > 0 {
		// Sidecar keeps metadata without touching the artifact itself.
		if data, merr := json.Marshal(metadata); merr == nil {
			_ = os.WriteFile(path+".meta", data, 0o644)
		}
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		LastModified: stat.ModTime(),
		Metadata:     metadata,
	}, nil
}

// Download retrieves an artifact by key.
func (s *FSStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// List lists all artifacts with the given prefix, in key order.
func (s *FSStore) List(ctx context.Context, prefix string) ([]*Artifact, error) {
	var artifacts []*Artifact

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".meta") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		artifacts = append(artifacts, &Artifact{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Delete removes an artifact by key.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	path := s.path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	os.Remove(path + ".meta")
	return nil
}

// DeletePrefix removes all artifacts with the given prefix.
func (s *FSStore) DeletePrefix(ctx context.Context, prefix string) error {
	artifacts, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := s.Delete(ctx, a.Key); err != nil {
			return err
		}
	}
	return nil
}

// Ensure FSStore implements Store.
var _ Store = (*FSStore)(nil)

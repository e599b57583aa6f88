package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient implements local file system storage
type LocalClient struct {
	basePath      string
	publicBaseURL string
}

// NewLocalClient creates a new local storage client rooted at basePath
func NewLocalClient(basePath, publicBaseURL string) (*LocalClient, error) {
	if basePath == "" {
		basePath = "./uploads"
	}

	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalClient{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// resolve maps a key to a path that cannot escape basePath
func (lc *LocalClient) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(key))
	if cleaned == string(filepath.Separator) {
		return "", NewStorageError("local", "INVALID_KEY", key, errors.New("empty key"))
	}
	return filepath.Join(lc.basePath, cleaned), nil
}

// Put saves data from a stream to the local file system
func (lc *LocalClient) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	fullPath, err := lc.resolve(key)
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return NewStorageError("local", "MKDIR_FAILED", key, err)
	}

	// Write to a sibling temp file so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return NewStorageError("local", "CREATE_FAILED", key, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: reader}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return NewStorageError("local", "WRITE_FAILED", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return NewStorageError("local", "WRITE_FAILED", key, err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return NewStorageError("local", "RENAME_FAILED", key, err)
	}
	return nil
}

// Open returns a reader for the file
func (lc *LocalClient) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := lc.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, NewStorageError("local", "OPEN_FAILED", key, err)
	}
	return file, nil
}

// Delete removes a file from local file system
func (lc *LocalClient) Delete(ctx context.Context, key string) error {
	fullPath, err := lc.resolve(key)
	if err != nil {
		return err
	}
	err = os.Remove(fullPath)
	if err == nil || os.IsNotExist(err) {
		return nil // File doesn't exist, consider it deleted
	}
	return NewStorageError("local", "DELETE_FAILED", key, err)
}

// Exists checks if a file exists
func (lc *LocalClient) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := lc.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, NewStorageError("local", "STAT_FAILED", key, err)
	}
	return true, nil
}

// URL returns the HTTP path the router serves the object under
func (lc *LocalClient) URL(key string) string {
	return lc.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

func (lc *LocalClient) Name() string {
	return "local"
}

// HealthCheck verifies local storage is accessible
func (lc *LocalClient) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(lc.basePath, ".health_check")

	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return fmt.Errorf("local storage write test failed: %w", err)
	}
	if _, err := os.ReadFile(testFile); err != nil {
		return fmt.Errorf("local storage read test failed: %w", err)
	}
	os.Remove(testFile)

	return nil
}

// contextReader stops a copy once the context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

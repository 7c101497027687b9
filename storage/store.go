// Package storage keeps per-run temporary artifacts on an abstract file
// system. Every run gets its own namespace under the base URL, keyed by
// its correlation id, so concurrent runs never share a path.
//
//	<base>/<correlationID>/<name>
//
// The base URL may use any scheme supported by github.com/viant/afs; the
// default is a local directory and tests use mem://.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// DefaultBaseURL is where artifacts are written when no base is configured.
const DefaultBaseURL = "file:///tmp/nashville_converter"

// ErrInvalidID is returned for correlation ids or names that could escape
// their namespace.
var ErrInvalidID = errors.New("invalid artifact id")

// ErrOutsideBase is returned for locations not managed by the store.
var ErrOutsideBase = errors.New("location outside temp storage")

// TempStore manages namespaced temporary artifacts.
type TempStore struct {
	fs      afs.Service
	baseURL string
	now     func() time.Time
}

// New returns a store rooted at baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *TempStore {
	return NewWithService(afs.New(), baseURL)
}

// NewWithService returns a store using the given afs service.
func NewWithService(fs afs.Service, baseURL string) *TempStore {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TempStore{
		fs:      fs,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// BaseURL returns the root of the store.
func (s *TempStore) BaseURL() string {
	return s.baseURL
}

// Location returns the URL of an artifact without touching storage.
func (s *TempStore) Location(correlationID, name string) (string, error) {
	if err := validateSegment(correlationID); err != nil {
		return "", fmt.Errorf("correlation id: %w", err)
	}
	if err := validateSegment(name); err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return url.Join(s.namespace(correlationID), name), nil
}

func (s *TempStore) namespace(correlationID string) string {
	return url.Join(s.baseURL, correlationID)
}

// Put writes data as an artifact and returns its location.
func (s *TempStore) Put(ctx context.Context, correlationID, name string, data []byte) (string, error) {
	location, err := s.Location(correlationID, name)
	if err != nil {
		return "", err
	}
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", location, err)
	}
	return location, nil
}

// Get reads an artifact previously written by Put.
func (s *TempStore) Get(ctx context.Context, location string) ([]byte, error) {
	if err := s.owns(location); err != nil {
		return nil, err
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

// Delete removes an artifact if it exists. Deleting a missing artifact is
// not an error, so Delete may be called any number of times.
func (s *TempStore) Delete(ctx context.Context, location string) error {
	if err := s.owns(location); err != nil {
		return err
	}
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", location, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete %s: %w", location, err)
	}
	return nil
}

// Purge removes a run's whole namespace.
func (s *TempStore) Purge(ctx context.Context, correlationID string) error {
	if err := validateSegment(correlationID); err != nil {
		return fmt.Errorf("correlation id: %w", err)
	}
	return s.Delete(ctx, s.namespace(correlationID))
}

// Sweep removes namespaces whose newest artifact is older than ttl and
// returns how many were removed. Namespaces that fail to delete are
// skipped; the first such error is returned after the sweep completes.
func (s *TempStore) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	exists, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", s.baseURL, err)
	}
	if !exists {
		return 0, nil
	}

	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}

	cutoff := s.now().Add(-ttl)
	removed := 0
	var firstErr error
	for _, object := range objects {
		if !object.IsDir() || sameLocation(object.URL(), s.baseURL) {
			continue
		}
		if s.newest(ctx, object.URL(), object.ModTime()).After(cutoff) {
			continue
		}
		if err := s.fs.Delete(ctx, object.URL()); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete %s: %w", object.URL(), err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// newest returns the most recent modification time inside a namespace,
// falling back to the namespace's own time when it is empty.
func (s *TempStore) newest(ctx context.Context, location string, fallback time.Time) time.Time {
	latest := fallback
	objects, err := s.fs.List(ctx, location)
	if err != nil {
		return latest
	}
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		if object.ModTime().After(latest) {
			latest = object.ModTime()
		}
	}
	return latest
}

func (s *TempStore) owns(location string) error {
	if !strings.HasPrefix(location, s.baseURL+"/") || strings.Contains(location, "..") {
		return fmt.Errorf("%w: %s", ErrOutsideBase, location)
	}
	return nil
}

func sameLocation(a, b string) bool {
	return strings.TrimRight(url.Path(a), "/") == strings.TrimRight(url.Path(b), "/")
}

// validateSegment accepts a single path segment made of letters, digits,
// '-', '_' and '.', not starting with '.'.
func validateSegment(s string) error {
	if s == "" || len(s) > 128 || s[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
	}
	return nil
}

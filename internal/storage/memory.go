package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// MemoryGateway implements Gateway without a remote store. It records every
// upload and delete, and can be told to fail uploads of specific files. It
// is used in tests and for local development.
type MemoryGateway struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]Kind
	uploads []string
	deletes []string
	failing map[string]bool

	Duration float64
}

// NewMemoryGateway returns a gateway whose URLs start with baseURL.
func NewMemoryGateway(baseURL string) *MemoryGateway {
	if baseURL == "" {
		baseURL = "memory://media"
	}
	return &MemoryGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]Kind),
		failing: make(map[string]bool),
	}
}

// FailUploadsOf makes uploads of files whose base name is name fail.
func (g *MemoryGateway) FailUploadsOf(name string) {
	g.mu.Lock()
	g.failing[name] = true
	g.mu.Unlock()
}

// Upload stores nothing but a record of the upload. Files whose extension
// is a common video extension are treated as videos.
func (g *MemoryGateway) Upload(ctx context.Context, localPath string) (result UploadResult, err error) {
	defer RemoveTempFile(ctx, localPath)
	defer func() { observe("upload", result.Kind, err) }()

	if strings.TrimSpace(localPath) == "" {
		return UploadResult{}, ErrNoFile
	}
	if _, err := os.Stat(localPath); err != nil {
		return UploadResult{}, fmt.Errorf("stat upload: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failing[filepath.Base(localPath)] {
		return UploadResult{}, errors.New("memory gateway: upload rejected")
	}

	kind := KindImage
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".mp4", ".mov", ".webm", ".mkv":
		kind = KindVideo
	}

	publicID := ulid.Make().String()
	key := keyPrefix(kind) + publicID + filepath.Ext(localPath)
	url := g.baseURL + "/" + key
	g.objects[key] = kind
	g.uploads = append(g.uploads, url)

	result = UploadResult{URL: url, PublicID: publicID, Kind: kind}
	if kind == KindVideo {
		result.DurationSeconds = g.Duration
	}
	return result, nil
}

// Delete forgets the object behind url and records the call.
func (g *MemoryGateway) Delete(_ context.Context, url string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deletes = append(g.deletes, url)
	if key, kind, ok := keyFromURL(url); ok {
		observe("delete", kind, nil)
		delete(g.objects, key)
	}
}

// Uploads returns the URLs of every successful upload, in order.
func (g *MemoryGateway) Uploads() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.uploads...)
}

// Deletes returns every URL passed to Delete, in order.
func (g *MemoryGateway) Deletes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deletes...)
}

// Stored reports whether url currently addresses a stored object.
func (g *MemoryGateway) Stored(url string) bool {
	key, _, ok := keyFromURL(url)
	if !ok {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, exists := g.objects[key]
	return exists
}

var (
	_ Gateway = (*S3Gateway)(nil)
	_ Gateway = (*MemoryGateway)(nil)
)

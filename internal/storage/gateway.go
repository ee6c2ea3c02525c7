package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// Kind classifies a stored object. It decides both the key prefix and how
// deletes are addressed.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

var (
	// ErrNoFile indicates the upload was handed an empty path.
	ErrNoFile = errors.New("no local file provided")
	// ErrUnsupportedMedia indicates the file is neither an image nor a video.
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// UploadResult describes an object persisted to remote storage.
type UploadResult struct {
	URL             string
	PublicID        string
	Kind            Kind
	DurationSeconds float64
}

// Gateway moves local temp files to durable remote storage.
type Gateway interface {
	// Upload pushes the file at localPath to remote storage. The local file
	// is removed on every outcome.
	Upload(ctx context.Context, localPath string) (UploadResult, error)
	// Delete removes the object addressed by url. Failures are logged, not returned.
	Delete(ctx context.Context, url string)
}

func keyPrefix(kind Kind) string {
	if kind == KindVideo {
		return "videos/"
	}
	return "images/"
}

// keyFromURL recovers the object key and kind from a public URL or a bare key.
func keyFromURL(raw string) (string, Kind, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}

	path := raw
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	path = "/" + strings.TrimLeft(path, "/")

	for _, kind := range []Kind{KindVideo, KindImage} {
		marker := "/" + keyPrefix(kind)
		if idx := strings.LastIndex(path, marker); idx >= 0 {
			key := path[idx+1:]
			if len(key) > len(marker)-1 {
				return key, kind, true
			}
		}
	}
	return "", "", false
}

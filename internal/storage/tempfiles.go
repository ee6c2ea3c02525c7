package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/vidshare/backend/internal/logging"
)

// RemoveTempFile deletes a local upload. Missing files are ignored and other
// failures are logged.
func RemoveTempFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.FromContext(ctx).Warn("remove temp file", slog.String("path", path), slog.Any("error", err))
	}
}

// RemoveTempFiles deletes every non-empty path.
func RemoveTempFiles(ctx context.Context, paths ...string) {
	for _, path := range paths {
		RemoveTempFile(ctx, path)
	}
}

package imagecache

import (
	"context"
	"os"
)

// Handle is a locally-usable reference to a resolved image. It is backed by
// a temp file so callers can hand a path to whatever renders it. Every
// handle must be released when no longer displayed.
type Handle struct {
	// URI is the source URI the handle was resolved from.
	URI string

	// Path is the temp file holding the image bytes.
	Path string

	// MIMEType is the asset's detected content type.
	MIMEType string

	// Cached reports whether the bytes were persisted to the binary cache
	// (false for serve-without-cache fallbacks).
	Cached bool

	owner *Manager
}

// Bytes reads the handle's backing file.
func (h *Handle) Bytes() ([]byte, error) {
	return os.ReadFile(h.Path)
}

// Release frees the transient resource behind h. It is a no-op for nil
// handles and for handles not issued by this manager.
func (m *Manager) Release(h *Handle) {
	if h == nil || h.owner != m {
		return
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		m.log.Warn(context.Background(), "failed to remove handle file", "path", h.Path, "error", err)
	}
}

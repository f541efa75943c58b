// Package archive stores rendered digests as markdown files for later
// reading outside the chat surface.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
	"newsdigest/internal/render"
)

// Writer saves one markdown file per requester per day.
type Writer struct {
	dir string
}

var _ ports.Archiver = (*Writer)(nil)

// NewWriter archives into the given directory, creating it on first use.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// ArchiveDigest renders the digest and writes it to the archive
// directory. A second digest for the same requester on the same day
// replaces the earlier file.
func (w *Writer) ArchiveDigest(_ context.Context, digest *domain.Digest) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("ensure archive dir: %w", err)
	}

	name := fmt.Sprintf("digest-%s-%d.md", digest.GeneratedAt.Format("2006-01-02"), digest.RequesterID)
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(render.Markdown(digest)), 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}

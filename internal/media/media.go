// Package media stores uploaded post images on the local filesystem.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Subdir is where post images live inside the media root.
const Subdir = "post_images"

var ErrBadPath = errors.New("media: path outside the media root")

type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Root() string { return d.root }

// Extensions maps the image types accepted for upload to the extension their
// stored files get.
var Extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

var ErrUnsupported = errors.New("media: unsupported image type")

// Save writes r under a fresh name whose extension follows contentType, and
// returns the slash-separated path relative to the root.
func (d *Dir) Save(contentType string, r io.Reader) (string, error) {
	ext, ok := Extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, contentType)
	}
	dir := filepath.Join(d.root, Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	name := uuid.New().String() + ext

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close media file: %w", err)
	}
	return path.Join(Subdir, name), nil
}

// Remove deletes a file previously returned by Save. Missing files are ignored.
func (d *Dir) Remove(rel string) error {
	clean := path.Clean("/" + rel)
	if !strings.HasPrefix(clean, "/"+Subdir+"/") {
		return ErrBadPath
	}
	err := os.Remove(filepath.Join(d.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Sniff reads the head of r to detect its content type and returns a reader
// replaying the whole stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

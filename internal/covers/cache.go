package covers

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aniplay/aniplay/internal/metadata"
)

// Cache maps canonical titles to locally stored cover images. Filenames are
// derived from the sanitized title, so repeated calls for the same title hit
// the same file and skip the network entirely.
type Cache struct {
	root     string
	provider metadata.Provider
}

// NewCache resolves the covers root once; every cover lives directly under
// it, named by sanitized title.
func NewCache(root string, provider metadata.Provider) (*Cache, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &Cache{root: abs, provider: provider}, nil
}

// Root is the resolved covers directory.
func (c *Cache) Root() string {
	return c.root
}

// EnsureCover returns the local filename for the title's cover, downloading
// it on a cache miss. Failures are reported but never fatal: the empty
// filename means the caller proceeds without a cover.
func (c *Cache) EnsureCover(title, imageURL string) (string, error) {
	if imageURL == "" {
		return "", nil
	}

	filename := SanitizeTitle(title) + ".jpg"
	path := filepath.Join(c.root, filename)

	if _, err := os.Stat(path); err == nil {
		return filename, nil // cache hit, no network call
	}

	data, err := c.provider.DownloadImage(imageURL)
	if err != nil {
		log.Printf("Covers: download for %q failed: %v", title, err)
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Covers: write %s failed: %v", path, err)
		return "", err
	}
	return filename, nil
}

// Invalidate removes the cached cover for the title, forcing the next
// EnsureCover call to download again.
func (c *Cache) Invalidate(title string) {
	path := filepath.Join(c.root, SanitizeTitle(title)+".jpg")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Covers: invalidate %s failed: %v", path, err)
	}
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var whitespace = regexp.MustCompile(`\s+`)

// SanitizeTitle makes a title safe to use as a filename: non-filesystem-safe
// characters become underscores and whitespace runs collapse.
func SanitizeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(title, "_")
	s = whitespace.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

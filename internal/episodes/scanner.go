package episodes

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Episode is one playable file inside an anime folder. Episodes are
// recomputed on every request and never persisted, the folder contents may
// change between views.
type Episode struct {
	Name    string `json:"name"`
	Path    string `json:"path"`     // absolute path
	RelPath string `json:"rel_path"` // relative to the anime folder
	Size    int64  `json:"size"`
}

// IsVideoFile checks if the file is a video based on extension.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4", ".mkv", ".avi", ".mov", ".flv", ".wmv", ".ts", ".rmvb", ".webm", ".m2ts":
		return true
	}
	return false
}

// List walks the anime folder recursively and returns its playable files in
// natural episode order: entries whose basenames both contain a number are
// ordered numerically, everything else falls back to lexicographic order.
func List(animeDir string) ([]Episode, error) {
	root, err := filepath.Abs(animeDir)
	if err != nil {
		return nil, err
	}

	var eps []Episode
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !IsVideoFile(d.Name()) {
			return nil
		}

		info, ierr := d.Info()
		var size int64
		if ierr == nil {
			size = info.Size()
		}
		rel, _ := filepath.Rel(root, p)
		eps = append(eps, Episode{
			Name:    d.Name(),
			Path:    p,
			RelPath: rel,
			Size:    size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(eps, func(i, j int) bool {
		ni, oki := episodeNumber(eps[i].Name)
		nj, okj := episodeNumber(eps[j].Name)
		if oki && okj && ni != nj {
			return ni < nj
		}
		return eps[i].Name < eps[j].Name
	})
	return eps, nil
}

var firstNumberRe = regexp.MustCompile(`\d+`)

// episodeNumber parses the first integer run in a filename.
func episodeNumber(name string) (int, bool) {
	m := firstNumberRe.FindString(name)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

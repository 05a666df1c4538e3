package metadata

import "github.com/aniplay/aniplay/internal/model"

// Result is the narrow contract between the library synchronizer and any
// metadata backend. A Result is always usable: when the remote lookup fails
// the backend returns a fallback carrying the original query as Title.
type Result struct {
	Title    string       `json:"title"`
	Synopsis string       `json:"synopsis"`
	Score    float64      `json:"score"`    // 0-10, 0 = unknown
	Episodes int          `json:"episodes"` // 0 = unknown
	Status   model.Status `json:"status"`
	Genres   []string     `json:"genres"`
	Year     *int         `json:"year"`
	ImageURL string       `json:"image_url"`
	Fallback bool         `json:"fallback"` // true when no real data could be fetched
	Note     string       `json:"note"`     // why the lookup degraded, empty otherwise
}

// Provider is the pluggable external metadata service. Search never fails:
// any network or parse error is downgraded to a fallback Result so the
// caller always has something to store.
type Provider interface {
	Search(query string) Result
	DownloadImage(url string) ([]byte, error)
}

// FallbackResult builds the degraded result used when the backend cannot
// supply real data. Numeric fields are zeroed and lists empty.
func FallbackResult(query, note string) Result {
	return Result{
		Title:    query,
		Synopsis: "",
		Status:   model.StatusUnknown,
		Genres:   []string{},
		Fallback: true,
		Note:     note,
	}
}

package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/aniplay/aniplay/internal/model"
	"github.com/go-resty/resty/v2"
)

const (
	GraphQLEndpoint = "https://graphql.anilist.co"

	// maxRedirects bounds image downloads; exceeding it is an ErrImageFetch.
	maxRedirects = 5
)

// ErrImageFetch is returned when an image download ends on a non-2xx status
// or exceeds the redirect limit.
var ErrImageFetch = errors.New("metadata: image fetch failed")

// AniListClient resolves queries against the public AniList GraphQL API.
// Only the single best match is used (no ambiguity resolution).
type AniListClient struct {
	client *resty.Client

	// Endpoint is overridable for tests.
	Endpoint string
}

func NewAniListClient(proxyURL string, timeout time.Duration) *AniListClient {
	c := resty.New()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c.SetTimeout(timeout)
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	c.SetHeader("Content-Type", "application/json")
	c.SetHeader("Accept", "application/json")

	return &AniListClient{
		client:   c,
		Endpoint: GraphQLEndpoint,
	}
}

type mediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

type coverImage struct {
	ExtraLarge string `json:"extraLarge"`
}

type media struct {
	ID           int        `json:"id"`
	Title        mediaTitle `json:"title"`
	CoverImage   coverImage `json:"coverImage"`
	Description  string     `json:"description"`
	AverageScore int        `json:"averageScore"`
	Episodes     int        `json:"episodes"`
	Status       string     `json:"status"`
	Genres       []string   `json:"genres"`
	SeasonYear   int        `json:"seasonYear"`
}

type searchResponse struct {
	Data struct {
		Page struct {
			Media []media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const searchQuery = `
query ($search: String) {
  Page(page: 1, perPage: 1) {
    media(search: $search, type: ANIME, sort: SEARCH_MATCH) {
      id
      title {
        romaji
        english
        native
      }
      coverImage {
        extraLarge
      }
      description(asHtml: false)
      averageScore
      episodes
      status
      genres
      seasonYear
    }
  }
}
`

var htmlTagRe = regexp.MustCompile("<[^>]*>")

// Search resolves query to a best-effort Result. It never returns an error:
// network and parse failures degrade to a fallback result so the caller
// always gets a usable record.
func (c *AniListClient) Search(query string) Result {
	payload := map[string]interface{}{
		"query": searchQuery,
		"variables": map[string]interface{}{
			"search": query,
		},
	}

	resp, err := c.client.R().
		SetBody(payload).
		Post(c.Endpoint)

	if err != nil {
		log.Printf("AniList: search %q failed: %v", query, err)
		return FallbackResult(query, fmt.Sprintf("lookup failed: %v", err))
	}
	if resp.IsError() {
		log.Printf("AniList: search %q returned %s", query, resp.Status())
		return FallbackResult(query, fmt.Sprintf("AniList API error: %s", resp.Status()))
	}

	var result searchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return FallbackResult(query, fmt.Sprintf("decode failed: %v", err))
	}
	if len(result.Errors) > 0 {
		return FallbackResult(query, fmt.Sprintf("AniList GraphQL error: %s", result.Errors[0].Message))
	}
	if len(result.Data.Page.Media) == 0 {
		return FallbackResult(query, "no match found")
	}

	return toResult(result.Data.Page.Media[0], query)
}

func toResult(m media, query string) Result {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	if title == "" {
		title = m.Title.Native
	}
	if title == "" {
		return FallbackResult(query, "match had no usable title")
	}

	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	if len(genres) > model.MaxGenres {
		genres = genres[:model.MaxGenres]
	}

	var year *int
	if m.SeasonYear > 0 {
		y := m.SeasonYear
		year = &y
	}

	return Result{
		Title:    title,
		Synopsis: htmlTagRe.ReplaceAllString(m.Description, ""),
		Score:    float64(m.AverageScore) / 10.0, // AniList scores 0-100
		Episodes: m.Episodes,
		Status:   mapStatus(m.Status),
		Genres:   genres,
		Year:     year,
		ImageURL: m.CoverImage.ExtraLarge,
	}
}

func mapStatus(s string) model.Status {
	switch s {
	case "FINISHED":
		return model.StatusFinished
	case "RELEASING":
		return model.StatusOngoing
	case "NOT_YET_RELEASED":
		return model.StatusNotYetAired
	case "CANCELLED":
		return model.StatusCancelled
	}
	return model.StatusUnknown
}

// DownloadImage fetches raw image bytes, following at most maxRedirects
// redirects. The final status must be 2xx.
func (c *AniListClient) DownloadImage(url string) ([]byte, error) {
	resp, err := c.client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %s", ErrImageFetch, resp.Status())
	}
	return resp.Body(), nil
}

package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/aniplay/aniplay/internal/model"
)

// relevanceThreshold is the fixed cutoff below which matches are excluded.
const relevanceThreshold = 0.3

// Index answers approximate text queries over a read-only snapshot of the
// catalog. It is rebuilt wholesale after any catalog mutation batch, never
// incrementally mutated; libraries are human-curated, so O(n) rebuilds and
// linear scans are fine.
type Index struct {
	mu       sync.RWMutex
	snapshot []model.Anime
}

func NewIndex() *Index {
	return &Index{}
}

// Rebuild swaps in a fresh snapshot, expected in title-ascending order.
func (idx *Index) Rebuild(records []model.Anime) {
	idx.mu.Lock()
	idx.snapshot = records
	idx.mu.Unlock()
}

// All returns the full snapshot in title order.
func (idx *Index) All() []model.Anime {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]model.Anime, len(idx.snapshot))
	copy(out, idx.snapshot)
	return out
}

// Query ranks records by similarity of the query against title and genres.
// Results below the relevance threshold are excluded; ties keep the
// snapshot's title-ascending order.
func (idx *Index) Query(text string) []model.Anime {
	if strings.TrimSpace(text) == "" {
		return idx.All()
	}

	idx.mu.RLock()
	snapshot := idx.snapshot
	idx.mu.RUnlock()

	type scored struct {
		anime model.Anime
		score float64
		order int
	}
	var hits []scored
	for i, a := range snapshot {
		score := similarity(text, a.Title)
		for _, g := range a.GenreList() {
			if s := similarity(text, g); s > score {
				score = s
			}
		}
		if score >= relevanceThreshold {
			hits = append(hits, scored{anime: a, score: score, order: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})

	out := make([]model.Anime, len(hits))
	for i, h := range hits {
		out[i] = h.anime
	}
	return out
}

// similarity scores how well a query matches a candidate string.
// Exact match = 1.0, prefix containment gets high credit, otherwise
// word overlap with a penalty when the candidate has many extra words.
func similarity(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	r := strings.ToLower(strings.TrimSpace(candidate))

	if q == "" || r == "" {
		return 0.0
	}
	if q == r {
		return 1.0
	}
	if strings.HasPrefix(r, q+" ") || strings.HasPrefix(q, r+" ") {
		return 0.9
	}

	qWords := strings.Fields(q)
	rWords := strings.Fields(r)
	if len(qWords) == 0 || len(rWords) == 0 {
		return 0.0
	}

	rSet := make(map[string]bool, len(rWords))
	for _, w := range rWords {
		rSet[w] = true
	}

	matches := 0
	for _, w := range qWords {
		if rSet[w] {
			matches++
		}
	}

	total := len(qWords)
	if len(rWords) > total {
		total = len(rWords)
	}
	score := float64(matches) / float64(total)

	// Penalize candidates with many extra words so "Bleach Movie 4 Hell
	// Verse" doesn't outrank "Bleach" for the query "bleach".
	if len(rWords) > len(qWords) {
		score *= float64(len(qWords)) / float64(len(rWords))
	}

	return score
}

package covers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aniplay/aniplay/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	downloads int
	fail      bool
}

func (s *stubProvider) Search(query string) metadata.Result {
	return metadata.FallbackResult(query, "not used")
}

func (s *stubProvider) DownloadImage(url string) ([]byte, error) {
	s.downloads++
	if s.fail {
		return nil, metadata.ErrImageFetch
	}
	return []byte("jpeg-bytes"), nil
}

func TestEnsureCover_DownloadsOnce(t *testing.T) {
	provider := &stubProvider{}
	cache, err := NewCache(t.TempDir(), provider)
	require.NoError(t, err)

	first, err := cache.EnsureCover("Naruto", "http://img/naruto.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Naruto.jpg", first)

	data, err := os.ReadFile(filepath.Join(cache.Root(), first))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	second, err := cache.EnsureCover("Naruto", "http://img/naruto.jpg")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.downloads, "cache hit must skip the network")
}

func TestEnsureCover_EmptyURL(t *testing.T) {
	provider := &stubProvider{}
	cache, err := NewCache(t.TempDir(), provider)
	require.NoError(t, err)

	filename, err := cache.EnsureCover("Naruto", "")
	require.NoError(t, err)
	assert.Empty(t, filename)
	assert.Zero(t, provider.downloads)
}

func TestEnsureCover_DownloadFailure(t *testing.T) {
	provider := &stubProvider{fail: true}
	cache, err := NewCache(t.TempDir(), provider)
	require.NoError(t, err)

	filename, err := cache.EnsureCover("Naruto", "http://img/naruto.jpg")
	assert.Error(t, err)
	assert.Empty(t, filename)

	entries, err := os.ReadDir(cache.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed download leaves no partial file")
}

func TestInvalidate(t *testing.T) {
	provider := &stubProvider{}
	cache, err := NewCache(t.TempDir(), provider)
	require.NoError(t, err)

	_, err = cache.EnsureCover("Naruto", "http://img/v1.jpg")
	require.NoError(t, err)

	cache.Invalidate("Naruto")

	_, err = cache.EnsureCover("Naruto", "http://img/v2.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.downloads, "invalidation forces a re-download")

	// Invalidating a title with no cached cover is a no-op.
	cache.Invalidate("Never Cached")
}

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Naruto", "Naruto"},
		{"Re:Zero", "Re_Zero"},
		{"Fate/stay night", "Fate_stay_night"},
		{`What "if"?`, "What__if"},
		{"  spaced   out  ", "spaced_out"},
		{"a<b>c|d*e", "a_b_c_d_e"},
	}
	for _, c := range cases {
		if got := SanitizeTitle(c.in); got != c.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

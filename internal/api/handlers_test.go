package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aniplay/aniplay/internal/covers"
	"github.com/aniplay/aniplay/internal/db"
	"github.com/aniplay/aniplay/internal/event"
	"github.com/aniplay/aniplay/internal/library"
	"github.com/aniplay/aniplay/internal/metadata"
	"github.com/aniplay/aniplay/internal/model"
	"github.com/aniplay/aniplay/internal/player"
	"github.com/aniplay/aniplay/internal/search"
	"github.com/aniplay/aniplay/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	db.InitDB(":memory:")
	code := m.Run()
	_ = db.CloseDB()
	os.Exit(code)
}

type stubProvider struct {
	results map[string]metadata.Result
	block   chan struct{} // when set, Search waits until the channel closes
	started chan struct{}
}

func (s *stubProvider) Search(query string) metadata.Result {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if r, ok := s.results[query]; ok {
		return r
	}
	return metadata.FallbackResult(query, "no match found")
}

func (s *stubProvider) DownloadImage(url string) ([]byte, error) {
	return []byte("jpeg-bytes"), nil
}

type stubTransport struct {
	commands [][]interface{}
	response *player.Response
	err      error
}

func (s *stubTransport) Send(cmd ...interface{}) (*player.Response, error) {
	s.commands = append(s.commands, cmd)
	if s.err != nil {
		return nil, s.err
	}
	if s.response != nil {
		return s.response, nil
	}
	return &player.Response{Error: "success"}, nil
}

type testServer struct {
	router    *gin.Engine
	catalog   *store.Catalog
	provider  *stubProvider
	transport *stubTransport
	root      string
}

func newTestServer(t *testing.T, folders []string) *testServer {
	t.Helper()

	root := t.TempDir()
	for _, f := range folders {
		require.NoError(t, os.Mkdir(filepath.Join(root, f), 0755))
	}

	provider := &stubProvider{results: map[string]metadata.Result{}}
	coverCache, err := covers.NewCache(t.TempDir(), provider)
	require.NoError(t, err)

	catalog := store.NewCatalog(db.DB)
	require.NoError(t, catalog.Clear())
	require.NoError(t, db.DB.Unscoped().Where("1 = 1").Delete(&model.WatchHistory{}).Error)

	sync := library.NewSynchronizer(root, catalog, provider, coverCache, search.NewIndex(), event.NewInMemoryBus(), 0)
	require.NoError(t, sync.RebuildIndex())

	transport := &stubTransport{}
	svc := &Services{
		Sync:        sync,
		Catalog:     catalog,
		Player:      player.NewController(transport),
		Bus:         event.NewInMemoryBus(),
		LibraryRoot: root,
		CoversRoot:  coverCache.Root(),
	}

	router := gin.New()
	InitRoutes(router, svc)

	return &testServer{router: router, catalog: catalog, provider: provider, transport: transport, root: root}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "every response carries the envelope")
	return w, env
}

func TestScanEndpoint(t *testing.T) {
	ts := newTestServer(t, []string{"Naruto", "Bleach"})

	w, env := ts.do(t, http.MethodPost, "/api/library/scan", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var report library.SyncReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Added)
	assert.Empty(t, report.Errors)
}

func TestScanEndpoint_ConflictWhileRunning(t *testing.T) {
	ts := newTestServer(t, []string{"Naruto"})
	ts.provider.block = make(chan struct{})
	ts.provider.started = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.do(t, http.MethodPost, "/api/library/scan", nil)
	}()
	<-ts.provider.started // first run is now inside the provider lookup

	w, env := ts.do(t, http.MethodPost, "/api/library/refresh", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)

	close(ts.provider.block)
	<-done
}

func TestListAnime(t *testing.T) {
	ts := newTestServer(t, nil)

	a := &model.Anime{Title: "Naruto", Path: "Naruto", Score: 7.9}
	a.SetGenres([]string{"Action", "Adventure"})
	_, err := ts.catalog.Insert(a)
	require.NoError(t, err)

	w, env := ts.do(t, http.MethodGet, "/api/anime", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var list []animeResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Naruto", list[0].Title)
	assert.Equal(t, []string{"Action", "Adventure"}, list[0].Genres, "genres cross the API as a list")
}

func TestGetAnime_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	w, env := ts.do(t, http.MethodGet, "/api/anime/424242", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestGetAnime_InvalidID(t *testing.T) {
	ts := newTestServer(t, nil)

	w, _ := ts.do(t, http.MethodGet, "/api/anime/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t, []string{"Attack on Titan", "Bleach"})
	ts.provider.results = map[string]metadata.Result{
		"Attack on Titan": {Title: "Attack on Titan", Status: model.StatusFinished},
		"Bleach":          {Title: "Bleach", Status: model.StatusFinished},
	}

	_, env := ts.do(t, http.MethodPost, "/api/library/scan", nil)
	require.True(t, env.Success)

	w, env := ts.do(t, http.MethodGet, "/api/library/search?q=attack+titan", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []animeResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Attack on Titan", list[0].Title)

	// Blank query returns everything.
	_, env = ts.do(t, http.MethodGet, "/api/library/search", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}

func TestEpisodesByPath(t *testing.T) {
	ts := newTestServer(t, []string{"Naruto"})
	for _, f := range []string{"Episode 2.mkv", "Episode 1.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(ts.root, "Naruto", f), []byte("x"), 0644))
	}

	w, env := ts.do(t, http.MethodGet, "/api/episodes?path=Naruto", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var eps []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &eps))
	require.Len(t, eps, 2)
	assert.Equal(t, "Episode 1.mkv", eps[0]["name"])

	// Missing parameter is a client error.
	w, env = ts.do(t, http.MethodGet, "/api/episodes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestWatchHistoryRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)

	a, err := ts.catalog.Insert(&model.Anime{Title: "Naruto", Path: "Naruto"})
	require.NoError(t, err)

	idPath := "/api/anime/" + itoa(a.ID)
	w, env := ts.do(t, http.MethodPost, idPath+"/watch", gin.H{
		"episode_path": "Naruto/Episode 1.mkv",
		"position":     42.0,
		"duration":     1440.0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	w, env = ts.do(t, http.MethodGet, idPath+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []model.WatchHistory
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Naruto/Episode 1.mkv", entries[0].EpisodePath)
	assert.Equal(t, 42.0, entries[0].Position)

	// Missing body field is a client error.
	w, _ = ts.do(t, http.MethodPost, idPath+"/watch", gin.H{"position": 1.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayerLoad(t *testing.T) {
	ts := newTestServer(t, []string{"Naruto"})
	target := filepath.Join(ts.root, "Naruto", "Episode 1.mkv")

	w, env := ts.do(t, http.MethodPost, "/api/player/load", gin.H{"path": target})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	require.Len(t, ts.transport.commands, 1)
	assert.Equal(t, []interface{}{"loadfile", target, "replace"}, ts.transport.commands[0])
}

func TestPlayerLoad_OutsideLibraryRoot(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/etc/passwd", filepath.Join(ts.root, "..", "escape.mkv")} {
		w, env := ts.do(t, http.MethodPost, "/api/player/load", gin.H{"path": path})
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %q must be rejected", path)
		assert.False(t, env.Success)
	}
	assert.Empty(t, ts.transport.commands, "rejected paths never reach the player")
}

func TestPlayerStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.transport.response = &player.Response{Data: 12.5, Error: "success"}

	w, env := ts.do(t, http.MethodGet, "/api/player/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]float64
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 12.5, status["position"])
	assert.Equal(t, 12.5, status["duration"])
}

func TestPlayer_TransportFailureIsBadGateway(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.transport.err = errors.New("socket gone")

	w, env := ts.do(t, http.MethodPost, "/api/player/play", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, env.Success)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

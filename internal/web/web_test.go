package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/store"
)

func setupTestServer(t *testing.T) (*httptest.Server, *store.Inventory) {
	t.Helper()
	dir := t.TempDir()

	blobs, err := blob.NewFS(filepath.Join(dir, "photos"))
	require.NoError(t, err)
	inv, err := store.Open(context.Background(), store.NewFileDocument(filepath.Join(dir, "inventory.json")), blobs, zap.NewNop().Sugar())
	require.NoError(t, err)

	router, err := NewRouter(inv, zap.NewNop().Sugar(), 1<<20)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, inv
}

// noRedirect returns a client that reports redirects instead of following them.
func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestItemsPage(t *testing.T) {
	server, inv := setupTestServer(t)
	inv.Register(context.Background(), "Widget <b>", "A widget", nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Widget &lt;b&gt;")
	assert.Contains(t, string(body), `action="/items/1/delete"`)
}

func TestCreateFromURLEncodedForm(t *testing.T) {
	server, inv := setupTestServer(t)

	resp, err := noRedirect().PostForm(server.URL+"/items", url.Values{"name": {"Hammer"}, "description": {"claw"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	items := inv.List(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, "Hammer", items[0].Name)
}

func TestCreateWithoutNameRedirectsWithError(t *testing.T) {
	server, inv := setupTestServer(t)

	resp, err := noRedirect().PostForm(server.URL+"/items", url.Values{"description": {"nameless"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/?error="))
	assert.Empty(t, inv.List(context.Background()))
}

func TestPhotoFormAndDelete(t *testing.T) {
	server, inv := setupTestServer(t)
	ctx := context.Background()
	item, err := inv.Register(ctx, "Camera", "", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "camera.jpg")
	require.NoError(t, err)
	fw.Write([]byte("photo bytes"))
	require.NoError(t, mw.Close())

	resp, err := noRedirect().Post(server.URL+"/items/1/photo", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	data, err := inv.GetPhoto(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("photo bytes"), data)

	resp, err = noRedirect().Post(server.URL+"/items/1/delete", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, inv.List(ctx))

	resp, err = noRedirect().Post(server.URL+"/items/1/delete", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Location"), "error=")
}

func TestStaticAssets(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, path := range []string{"/static/style.css", "/static/openapi.yaml"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

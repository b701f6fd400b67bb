package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

const testMaxPhotoBytes = 1 << 20

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	blobs, err := blob.NewFS(filepath.Join(dir, "photos"))
	require.NoError(t, err)
	inv, err := store.Open(context.Background(), store.NewFileDocument(filepath.Join(dir, "inventory.json")), blobs, zap.NewNop().Sugar())
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(inv, zap.NewNop().Sugar(), testMaxPhotoBytes))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doPhoto(t *testing.T, method, url string, fields map[string]string, photo []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestItemsAPIFlow(t *testing.T) {
	server := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/items", map[string]string{
		"name":        "Widget",
		"description": "A widget",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Item](t, resp)
	assert.Equal(t, int64(1), created.ID)
	assert.Nil(t, created.PhotoRef)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Item](t, resp), 1)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/items/1", map[string]string{"description": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A widget", decode[model.Item](t, resp).Description)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/items/1", map[string]string{"name": "Gadget"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Gadget", decode[model.Item](t, resp).Name)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Gadget", decode[model.Item](t, resp).Name)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/items/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), decode[model.Mutation](t, resp).Item.ID)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/items/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidation(t *testing.T) {
	server := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/items", map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/items", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	bad, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	server := setupTestServer(t)

	for _, path := range []string{"/api/items/42", "/api/items/42/photo", "/api/search?id=42"} {
		resp := doJSON(t, http.MethodGet, server.URL+path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	for _, path := range []string{"/api/items/abc", "/api/search?id=abc"} {
		resp := doJSON(t, http.MethodGet, server.URL+path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	resp := doJSON(t, http.MethodPut, server.URL+"/api/items/42", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPhotoFlow(t *testing.T) {
	server := setupTestServer(t)
	photo := testPNG(t, 400, 200)

	resp := doPhoto(t, http.MethodPost, server.URL+"/api/items", map[string]string{"name": "Camera"}, photo)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Item](t, resp)
	require.NotNil(t, created.PhotoRef)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, photo, body)

	replacement := []byte("not really an image")
	resp = doPhoto(t, http.MethodPut, server.URL+"/api/items/1/photo", nil, replacement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[model.Mutation](t, resp)
	assert.NotEqual(t, *created.PhotoRef, *res.Item.PhotoRef)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo", nil)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, replacement, body)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo/thumbnail", nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/search?id=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[model.ItemView](t, resp)
	assert.True(t, view.HasPhoto)
	assert.Equal(t, "Camera", view.Name)
}

func TestThumbnail(t *testing.T) {
	server := setupTestServer(t)

	resp := doPhoto(t, http.MethodPost, server.URL+"/api/items", map[string]string{"name": "Poster"}, testPNG(t, 400, 200))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo/thumbnail?size=100", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	img, _, err := image.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo/thumbnail?size=-3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadPhotoValidation(t *testing.T) {
	server := setupTestServer(t)
	doJSON(t, http.MethodPost, server.URL+"/api/items", map[string]string{"name": "Camera"})

	resp := doPhoto(t, http.MethodPut, server.URL+"/api/items/1/photo", map[string]string{"note": "no file"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doPhoto(t, http.MethodPut, server.URL+"/api/items/1/photo", nil, []byte{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doPhoto(t, http.MethodPut, server.URL+"/api/items/9/photo", nil, []byte("photo"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doPhoto(t, http.MethodPut, server.URL+"/api/items/1/photo", nil, make([]byte, testMaxPhotoBytes+1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/items/1/photo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "item without photo")
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t)
	doJSON(t, http.MethodPost, server.URL+"/api/items", map[string]string{"name": "Widget"})

	resp := doJSON(t, http.MethodGet, server.URL+"/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status    string      `json:"status"`
		Inventory store.Stats `json:"inventory"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, store.Stats{Items: 1, NextID: 2}, out.Inventory)
}

func TestUnknownRoute(t *testing.T) {
	server := setupTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	})

	h := LoggingMiddleware(zap.NewNop().Sugar())(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())
}

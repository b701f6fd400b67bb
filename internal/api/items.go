package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
)

// ItemsHandler handles item and photo endpoints.
type ItemsHandler struct {
	Inventory     Inventory
	Logger        *zap.SugaredLogger
	MaxPhotoBytes int64
}

type createItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.Logger, http.StatusOK, h.Inventory.List(r.Context()))
}

// Create handles POST /api/items. The body is either JSON or a multipart
// form whose optional "photo" file becomes the item's photo.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		req   createItemRequest
		photo []byte
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxPhotoBytes+1<<20)
		if err := r.ParseMultipartForm(h.MaxPhotoBytes); err != nil {
			jsonError(w, h.Logger, http.StatusBadRequest, "file too large or invalid multipart form")
			return
		}
		req.Name = r.FormValue("name")
		req.Description = r.FormValue("description")

		data, err := h.readPhoto(r)
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			jsonError(w, h.Logger, http.StatusBadRequest, err.Error())
			return
		}
		photo = data
	} else if err := decodeJSON(r, &req); err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.Register(r.Context(), req.Name, req.Description, photo)
	if err != nil {
		storeError(w, h.Logger, "register item", err)
		return
	}

	jsonResponse(w, h.Logger, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		storeError(w, h.Logger, "get item", err)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, item)
}

// Update handles PUT and PATCH /api/items/{id}. Omitted and empty fields
// keep their current value.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req model.ItemUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.Update(r.Context(), id, req)
	if err != nil {
		storeError(w, h.Logger, "update item", err)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	res, err := h.Inventory.Delete(r.Context(), id)
	if err != nil {
		storeError(w, h.Logger, "delete item", err)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, res)
}

// UploadPhoto handles PUT /api/items/{id}/photo with a multipart "photo" file.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxPhotoBytes); err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	data, err := h.readPhoto(r)
	if errors.Is(err, http.ErrMissingFile) {
		jsonError(w, h.Logger, http.StatusBadRequest, "photo file required")
		return
	}
	if err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Inventory.SetPhoto(r.Context(), id, data)
	if err != nil {
		storeError(w, h.Logger, "set photo", err)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, res)
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	data, err := h.Inventory.GetPhoto(r.Context(), id)
	if err != nil {
		storeError(w, h.Logger, "get photo", err)
		return
	}

	writePhoto(w, h.Logger, imaging.Sniff(data), data)
}

// GetThumbnail handles GET /api/items/{id}/photo/thumbnail?size=N.
func (h *ItemsHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	size := imaging.DefaultThumbnailSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonError(w, h.Logger, http.StatusBadRequest, "invalid thumbnail size")
			return
		}
		size = n
	}

	data, err := h.Inventory.GetPhoto(r.Context(), id)
	if err != nil {
		storeError(w, h.Logger, "get photo", err)
		return
	}

	thumb, err := imaging.Thumbnail(data, size)
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, h.Logger, http.StatusUnsupportedMediaType, "photo is not a JPEG, PNG or GIF image")
		return
	}
	if err != nil {
		h.Logger.Errorw("rendering thumbnail failed", "item_id", id, "error", err)
		jsonError(w, h.Logger, http.StatusInternalServerError, "rendering thumbnail failed")
		return
	}

	writePhoto(w, h.Logger, "image/jpeg", thumb)
}

// Search handles GET /api/search?id=N.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, "invalid item id")
		return
	}

	view, err := h.Inventory.Search(r.Context(), id)
	if err != nil {
		storeError(w, h.Logger, "search", err)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, view)
}

// Health handles GET /api/health.
func (h *ItemsHandler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.Logger, http.StatusOK, map[string]any{
		"status":    "ok",
		"inventory": h.Inventory.Stats(),
	})
}

// itemID parses the {id} path parameter, answering 400 when it is invalid.
func (h *ItemsHandler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, h.Logger, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}

// readPhoto reads the "photo" file of a parsed multipart form.
func (h *ItemsHandler) readPhoto(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if header.Size > h.MaxPhotoBytes {
		return nil, errors.New("photo too large")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read photo")
	}
	return data, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func writePhoto(w http.ResponseWriter, logger *zap.SugaredLogger, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		logger.Errorw("failed to write photo response", "error", err)
	}
}

package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/inventar/internal/model"
)

// ItemsPage handles GET /.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "items.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: PageData{
			Title:   "Items",
			Error:   r.URL.Query().Get("error"),
			Warning: r.URL.Query().Get("warning"),
		},
		Items: s.Inventory.List(r.Context()),
	})
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(s.MaxPhotoBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		redirectWith(w, r, "error", "File too large or invalid form.")
		return
	}

	photo, err := s.formPhoto(r)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		redirectWith(w, r, "error", err.Error())
		return
	}

	item, err := s.Inventory.Register(r.Context(), r.FormValue("name"), r.FormValue("description"), photo)
	if err != nil {
		s.failed(w, r, "failed to create item", err)
		return
	}

	s.Logger.Infow("item created from form", "item_id", item.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemPhotoSubmit handles POST /items/{id}/photo.
func (s *Server) ItemPhotoSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(s.MaxPhotoBytes); err != nil {
		redirectWith(w, r, "error", "File too large or invalid form.")
		return
	}

	photo, err := s.formPhoto(r)
	if err != nil {
		redirectWith(w, r, "error", "Choose a photo to upload.")
		return
	}

	res, err := s.Inventory.SetPhoto(r.Context(), id, photo)
	if err != nil {
		s.failed(w, r, "failed to set photo", err)
		return
	}
	if res.Warning != nil {
		redirectWith(w, r, "warning", "Photo replaced, but the previous file could not be removed.")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	res, err := s.Inventory.Delete(r.Context(), id)
	if err != nil {
		s.failed(w, r, "failed to delete item", err)
		return
	}
	if res.Warning != nil {
		redirectWith(w, r, "warning", "Item deleted, but its photo file could not be removed.")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) formPhoto(r *http.Request) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, http.ErrMissingFile
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if header.Size > s.MaxPhotoBytes {
		return nil, errors.New("photo is too large")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("could not read the photo")
	}
	return data, nil
}

// failed redirects back with a message for expected errors and logs the rest.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		redirectWith(w, r, "error", "Please fill in the required fields.")
	case errors.Is(err, model.ErrNotFound):
		redirectWith(w, r, "error", "That item no longer exists.")
	default:
		s.Logger.Errorw(msg, "error", err)
		redirectWith(w, r, "error", "Something went wrong, please try again.")
	}
}

func redirectWith(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, "/?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

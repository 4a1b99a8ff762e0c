package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/bookmarks/internal/importer"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const (
	msgMissingFields = "Missing required fields"
	msgAddFailed     = "Failed to add bookmark. Please try again."
	msgDeleteFailed  = "Failed to delete bookmark. Please try again."
	msgLoadFailed    = "Failed to load bookmarks. Please try again."
	msgImportFailed  = "Failed to import bookmarks. Please try again."
)

// maxAddBody and maxImportBody cap request bodies.
const (
	maxAddBody    = 16 << 10
	maxImportBody = 1 << 20
)

// bookmarkView is a bookmark with its display fields.
type bookmarkView struct {
	domain.Bookmark
	Domain  string `json:"domain"`
	Created string `json:"created"`
}

func viewsOf(list []domain.Bookmark) []bookmarkView {
	out := make([]bookmarkView, 0, len(list))
	for _, b := range list {
		out = append(out, bookmarkView{
			Bookmark: b,
			Domain:   b.Domain(),
			Created:  domain.DisplayDate(b.CreatedAt),
		})
	}
	return out
}

type listResponse struct {
	Bookmarks  []bookmarkView `json:"bookmarks"`
	Count      int            `json:"count"`
	CountLabel string         `json:"count_label"`
}

type countResponse struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

type addRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ListBookmarks returns the session owner's snapshot, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())

		list, err := d.Store.ListByOwner(r.Context(), sess.OwnerID())
		if err != nil {
			d.Logger.Error("failed to list bookmarks",
				logger.String("user_id", sess.OwnerID()),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, msgLoadFailed)
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Bookmarks:  viewsOf(list),
			Count:      len(list),
			CountLabel: domain.CountLabel(len(list)),
		})
	}
}

// CountBookmarks returns the session owner's bookmark count.
func CountBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())

		n, err := d.Store.CountByOwner(r.Context(), sess.OwnerID())
		if err != nil {
			d.Logger.Error("failed to count bookmarks",
				logger.String("user_id", sess.OwnerID()),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, msgLoadFailed)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Count: n, Label: domain.CountLabel(n)})
	}
}

// AddBookmark validates and inserts a bookmark for the session owner.
// Open views pick the row up through the change channel or their next poll.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())

		var req addRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxAddBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, msgMissingFields)
			return
		}

		nb, err := domain.NewBookmarkRequest(req.Title, req.URL, sess.OwnerID())
		if err != nil {
			writeError(w, http.StatusBadRequest, msgMissingFields)
			return
		}

		b, err := d.Store.Insert(r.Context(), nb)
		if err != nil {
			d.Logger.Error("failed to add bookmark",
				logger.String("user_id", sess.OwnerID()),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, msgAddFailed)
			return
		}

		d.Logger.Info("bookmark added",
			logger.String("user_id", sess.OwnerID()),
			logger.String("bookmark_id", b.ID))
		writeJSON(w, http.StatusCreated, viewsOf([]domain.Bookmark{b})[0])
	}
}

// DeleteBookmark removes one of the session owner's bookmarks.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())
		id := chi.URLParam(r, "id")

		err := d.Store.Delete(r.Context(), sess.OwnerID(), id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
			return
		case err != nil:
			d.Logger.Error("failed to delete bookmark",
				logger.String("user_id", sess.OwnerID()),
				logger.String("bookmark_id", id),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, msgDeleteFailed)
			return
		}

		d.Logger.Info("bookmark deleted",
			logger.String("user_id", sess.OwnerID()),
			logger.String("bookmark_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ImportBookmarks adds every entry of a Homepage bookmarks.yaml body.
func ImportBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())

		data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}

		res, err := importer.Import(r.Context(), d.Store, sess.OwnerID(), data)
		switch {
		case errors.Is(err, importer.ErrEmpty), errors.Is(err, importer.ErrInvalidDocument):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			d.Logger.Error("bookmark import failed",
				logger.String("user_id", sess.OwnerID()),
				logger.Int("imported", res.Imported),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, msgImportFailed)
			return
		}

		d.Logger.Info("bookmarks imported",
			logger.String("user_id", sess.OwnerID()),
			logger.Int("imported", res.Imported),
			logger.Int("skipped", res.Skipped))
		writeJSON(w, http.StatusOK, res)
	}
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.MutationBurst,
		RefillPerMin: d.MutationPerMin,
		MaxEntries:   10000,
		Key:          mw.SessionUserKey(d.TrustProxy),
		Now:          d.TimeNow,
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(d.Auth, d.Logger))

		r.Get("/api/bookmarks/live", handlers.Live(d))

		r.Group(func(r chi.Router) {
			r.Use(timeout(d))
			r.Get("/api/me", handlers.Me(d))
			r.Get("/api/bookmarks", handlers.ListBookmarks(d))
			r.Get("/api/bookmarks/count", handlers.CountBookmarks(d))

			r.With(limit).Post("/api/bookmarks", handlers.AddBookmark(d))
			r.With(limit).Post("/api/bookmarks/import", handlers.ImportBookmarks(d))
			r.With(limit).Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
		})
	})
}

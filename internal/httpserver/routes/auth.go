package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/handlers"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(timeout(d))
		r.Get("/auth/providers", handlers.Providers(d))
		r.Get("/auth/signin/{provider}", handlers.SignIn(d))
		r.Get("/auth/callback", handlers.Callback(d))
		r.Post("/auth/signout", handlers.SignOut(d))
	})
}

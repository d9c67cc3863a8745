package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aryak/blogfront/internal/middleware"
	"github.com/aryak/blogfront/internal/session"
)

// Router wires every page and endpoint onto a chi mux.
func Router(h *Handler, sessions *session.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public pages
	r.Get("/", h.Home)
	r.Get("/post/{id}", h.ViewPost)
	r.Get("/api/session", h.SessionState)

	// Guest-only pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireGuest(sessions))
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Get("/register", h.RegisterForm)
		r.Post("/register", h.Register)
	})

	// Authenticated pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Get("/dashboard", h.Dashboard)
		r.Get("/my-posts", h.MyPosts)
		r.Get("/post/create", h.CreatePostForm)
		r.Post("/post/create", h.CreatePost)
		r.Get("/post/{id}/edit", h.EditPostForm)
		r.Post("/post/{id}/edit", h.EditPost)
		r.Post("/post/{id}/delete", h.DeletePost)
		r.Post("/logout", h.Logout)
	})

	return r
}

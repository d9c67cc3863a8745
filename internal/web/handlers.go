package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aryak/blogfront/internal/api"
	"github.com/aryak/blogfront/internal/models"
	"github.com/aryak/blogfront/internal/session"
)

// Handler holds the page handlers and their dependencies.
type Handler struct {
	backend   *api.Client
	sessions  *session.Manager
	templates map[string]*template.Template
}

func NewHandler(backend *api.Client, sessions *session.Manager) (*Handler, error) {
	cache, err := newTemplateCache()
	if err != nil {
		return nil, err
	}
	return &Handler{backend: backend, sessions: sessions, templates: cache}, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// isAuthFailure reports whether an error means the session is no
// longer valid on the backend. The message substrings are the de facto
// classification protocol at this boundary.
func isAuthFailure(err error) bool {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "auth")
}

// Home lists all posts. Public.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.backend.ListPosts(r.Context())
	if err != nil {
		log.Printf("list posts: %v", err)
		h.render(w, r, "home.page.html", &PageData{Title: "Blog", FormError: err.Error()})
		return
	}
	h.render(w, r, "home.page.html", &PageData{Title: "Blog", Posts: posts})
}

// ViewPost shows a single post. Edit and delete controls appear only
// for the owner; the backend enforces ownership regardless.
func (h *Handler) ViewPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	post, err := h.backend.GetPost(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user := h.sessions.User()
	owner := user != nil && user.ID == post.AuthorID
	h.render(w, r, "post.page.html", &PageData{Title: post.Title, Post: post, Owner: owner})
}

// Dashboard shows the logged-in user's account details.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard.page.html", &PageData{Title: "Dashboard"})
}

// MyPosts lists the caller's own posts. An auth failure here means the
// token went bad since startup, so the session is dropped and the user
// is sent back to the login page.
func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.backend.MyPosts(r.Context(), h.sessions.Token())
	if err != nil {
		if isAuthFailure(err) {
			h.sessions.Logout(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.render(w, r, "myposts.page.html", &PageData{Title: "My posts", FormError: err.Error()})
		return
	}
	h.render(w, r, "myposts.page.html", &PageData{Title: "My posts", Posts: posts})
}

// CreatePostForm renders the new-post form.
func (h *Handler) CreatePostForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "create.page.html", &PageData{Title: "New post", FormData: map[string]string{}})
}

// CreatePost submits a new post.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"title":     strings.TrimSpace(r.PostForm.Get("title")),
		"content":   strings.TrimSpace(r.PostForm.Get("content")),
		"image_url": strings.TrimSpace(r.PostForm.Get("image_url")),
	}
	if form["title"] == "" || form["content"] == "" {
		h.render(w, r, "create.page.html", &PageData{
			Title: "New post", FormError: "Title and content are required", FormData: form,
		})
		return
	}

	post, err := h.backend.CreatePost(r.Context(), h.sessions.Token(), models.CreatePostRequest{
		Title:    form["title"],
		Content:  form["content"],
		ImageURL: form["image_url"],
	})
	if err != nil {
		if isAuthFailure(err) {
			h.sessions.Logout(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.render(w, r, "create.page.html", &PageData{Title: "New post", FormError: err.Error(), FormData: form})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/post/%d", post.ID), http.StatusSeeOther)
}

// EditPostForm renders the edit form, owner only.
func (h *Handler) EditPostForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}
	h.render(w, r, "edit.page.html", &PageData{
		Title: "Edit post",
		Post:  post,
		FormData: map[string]string{
			"title":     post.Title,
			"content":   post.Content,
			"image_url": post.ImageURL,
		},
	})
}

// EditPost submits a partial update, owner only.
func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"title":     strings.TrimSpace(r.PostForm.Get("title")),
		"content":   strings.TrimSpace(r.PostForm.Get("content")),
		"image_url": strings.TrimSpace(r.PostForm.Get("image_url")),
	}
	if form["title"] == "" || form["content"] == "" {
		h.render(w, r, "edit.page.html", &PageData{
			Title: "Edit post", Post: post, FormError: "Title and content are required", FormData: form,
		})
		return
	}

	req := models.UpdatePostRequest{}
	if form["title"] != post.Title {
		t := form["title"]
		req.Title = &t
	}
	if form["content"] != post.Content {
		c := form["content"]
		req.Content = &c
	}
	if form["image_url"] != post.ImageURL {
		u := form["image_url"]
		req.ImageURL = &u
	}

	updated, err := h.backend.UpdatePost(r.Context(), h.sessions.Token(), post.ID, req)
	if err != nil {
		if isAuthFailure(err) {
			h.sessions.Logout(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.render(w, r, "edit.page.html", &PageData{Title: "Edit post", Post: post, FormError: err.Error(), FormData: form})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/post/%d", updated.ID), http.StatusSeeOther)
}

// DeletePost removes a post, owner only.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}
	if err := h.backend.DeletePost(r.Context(), h.sessions.Token(), post.ID); err != nil {
		if isAuthFailure(err) {
			h.sessions.Logout(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.render(w, r, "post.page.html", &PageData{Title: post.Title, Post: post, Owner: true, FormError: err.Error()})
		return
	}
	http.Redirect(w, r, "/my-posts", http.StatusSeeOther)
}

// ownedPost loads the post from the route and rejects the request when
// the current user is not its author. The backend re-checks ownership;
// this keeps the refusal local and the post untouched.
func (h *Handler) ownedPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	post, err := h.backend.GetPost(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	user := h.sessions.User()
	if user == nil || user.ID != post.AuthorID {
		w.WriteHeader(http.StatusForbidden)
		h.render(w, r, "post.page.html", &PageData{
			Title: post.Title, Post: post, FormError: "You can only modify your own posts",
		})
		return nil, false
	}
	return post, true
}

// LoginForm renders the login page.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.page.html", &PageData{Title: "Log in", FormData: map[string]string{}})
}

// Login submits credentials. A backend failure leaves the session
// anonymous and shows the backend's message as-is.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := map[string]string{"email": strings.TrimSpace(r.PostForm.Get("email"))}
	password := r.PostForm.Get("password")
	if form["email"] == "" || password == "" {
		h.render(w, r, "login.page.html", &PageData{
			Title: "Log in", FormError: "Email and password are required", FormData: form,
		})
		return
	}

	err := h.sessions.Login(r.Context(), models.LoginRequest{Email: form["email"], Password: password})
	if err != nil {
		h.render(w, r, "login.page.html", &PageData{Title: "Log in", FormError: err.Error(), FormData: form})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm renders the registration page.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.page.html", &PageData{Title: "Register", FormData: map[string]string{}})
}

// Register validates the form locally, then submits. The password
// rules never reach the network.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"username": strings.TrimSpace(r.PostForm.Get("username")),
		"email":    strings.TrimSpace(r.PostForm.Get("email")),
	}
	password := r.PostForm.Get("password")
	confirm := r.PostForm.Get("confirm_password")

	var formErr string
	switch {
	case form["username"] == "" || form["email"] == "" || password == "":
		formErr = "Username, email, and password are required"
	case len(password) < 6:
		formErr = "Password must be at least 6 characters"
	case password != confirm:
		formErr = "Passwords do not match"
	}
	if formErr != "" {
		h.render(w, r, "register.page.html", &PageData{Title: "Register", FormError: formErr, FormData: form})
		return
	}

	err := h.sessions.Register(r.Context(), models.RegisterRequest{
		Username: form["username"],
		Email:    form["email"],
		Password: password,
	})
	if err != nil {
		h.render(w, r, "register.page.html", &PageData{Title: "Register", FormError: err.Error(), FormData: form})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout drops the session and returns home. Safe to call twice.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SessionState reports the current session as JSON.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Snapshot())
}

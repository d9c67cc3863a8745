package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/aryak/blogfront/internal/models"
)

//go:embed templates
var templateFS embed.FS

// PageData carries everything a page template can use. FormError and
// FormData re-populate a form after a failed submit.
type PageData struct {
	Title         string
	FormError     string
	FormData      map[string]string
	CurrentUser   *models.User
	Authenticated bool
	Post          *models.Post
	Posts         []models.Post
	Owner         bool
}

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006, 15:04")
	},
}

// newTemplateCache parses each page together with the base layout once
// at startup.
func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(templateFS, "templates/*.page.html")
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(functions).ParseFS(templateFS, "templates/base.layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		cache[name] = ts
	}
	return cache, nil
}

// render writes a page through a buffer so a template error can still
// become a clean 500 instead of a half-written body.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data *PageData) {
	if data == nil {
		data = &PageData{}
	}
	if data.CurrentUser == nil {
		data.CurrentUser = h.sessions.User()
	}
	data.Authenticated = h.sessions.IsAuthenticated()

	ts, ok := h.templates[page]
	if !ok {
		log.Printf("render: no template %q", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		log.Printf("render %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	buf.WriteTo(w)
}

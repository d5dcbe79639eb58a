package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"skykeen/internal/adapters/http/middleware"
	"skykeen/internal/domain/registration"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Layouts
const (
	siteLayout  = "site_layout.html"
	adminLayout = "admin_layout.html"
)

// pages maps each page template to its layout.
var pages = map[string]string{
	"home.html":           siteLayout,
	"not_found.html":      siteLayout,
	"login.html":          adminLayout,
	"dashboard.html":      adminLayout,
	"confirm_delete.html": adminLayout,
	"audit_trail.html":    adminLayout,
}

// baseFuncs are replaced per request by requestFuncs; they exist so parsing succeeds.
var baseFuncs = template.FuncMap{
	"csrfToken":    func() string { return "" },
	"currentEmail": func() string { return "" },
	"isLoggedIn":   func() bool { return false },
	"renderMarkdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
	"displayLabel": registration.DisplayLabel,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2 Jan 2006, 15:04")
	},
	"sortLink": func(s registration.SortState, col string) template.URL {
		next := s.Toggle(registration.SortKey(col))
		return template.URL(sortParams(next).URL("/dashboard"))
	},
	"sortIndicator": func(s registration.SortState, col string) string {
		return s.Indicator(registration.SortKey(col))
	},
	"join": strings.Join,
}

var templates = mustParseTemplates()

func mustParseTemplates() map[string]*template.Template {
	out := make(map[string]*template.Template, len(pages))
	for page, layout := range pages {
		out[page] = template.Must(template.New(layout).Funcs(baseFuncs).
			ParseFS(templateFS, "templates/"+layout, "templates/partials_*.html", "templates/"+page))
	}
	return out
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// renderTemplate writes page with its layout and the given status.
func renderTemplate(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	base, ok := templates[page]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %q", page))
		return
	}
	tpl, err := base.Clone()
	if err != nil {
		internalError(w, err)
		return
	}

	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	tpl.Funcs(template.FuncMap{
		"csrfToken":    func() string { return csrf.Token(r) },
		"currentEmail": func() string { return sess.Email },
		"isLoggedIn":   func() bool { return loggedIn },
	})

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (a *app) handleNotFound(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, http.StatusNotFound, "not_found.html", map[string]any{"Title": "Page not found"})
}

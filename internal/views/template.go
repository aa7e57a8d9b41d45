package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/rahul4469/gitgrade/internal/analysis"
)

// Template wraps a parsed page with helper methods for rendering.
type Template struct {
	tmpl *template.Template
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// Hidden CSRF input for forms, filled in by ExecuteHTTP.
	CSRFField template.HTML

	// Flash messages
	Error   string
	Success string

	// NeedsSettings asks the page to point the user at /settings.
	NeedsSettings bool

	// Page-specific data
	Data any

	Title string

	// Request info (useful for active nav highlighting)
	CurrentPath string

	IsDevelopment bool
}

// DefaultFuncMap returns the template functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,

		// Date/time formatting
		"formatDateTime": formatDateTime,
		"timeAgo":        timeAgo,

		// Number formatting
		"formatNumber": formatNumber,

		// Score styling
		"levelClass": levelClass,
		"scoreClass": scoreClass,
		"barWidth":   barWidth,

		"markdown": markdownToHTML,
	}
}

// ParseFS parses one page from fsys together with the base layout and any
// partials.
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/analyze.gohtml")
//	// parses layouts/base.gohtml, partials/*.gohtml, pages/analyze.gohtml
func ParseFS(fsys fs.FS, patterns ...string) (*Template, error) {
	tmpl := template.New("").Funcs(DefaultFuncMap())

	tmpl, err := tmpl.ParseFS(fsys, "layouts/base.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	partials, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	if len(partials) > 0 {
		tmpl, err = tmpl.ParseFS(fsys, partials...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partials: %w", err)
		}
	}

	// Pages define {{define "content"}} which the base layout renders.
	for _, pattern := range patterns {
		tmpl, err = tmpl.ParseFS(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pattern, err)
		}
	}

	return &Template{tmpl: tmpl}, nil
}

// MustParseFS is like ParseFS but panics on error.
// Use this during initialization when templates must be valid.
func MustParseFS(fsys fs.FS, patterns ...string) *Template {
	tmpl, err := ParseFS(fsys, patterns...)
	if err != nil {
		panic(fmt.Sprintf("failed to parse templates: %v", err))
	}
	return tmpl
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTP renders the template as a 200 response.
func (t *Template) ExecuteHTTP(w http.ResponseWriter, r *http.Request, data *TemplateData) {
	t.ExecuteHTTPWithStatus(w, r, http.StatusOK, data)
}

// ExecuteHTTPWithStatus renders the template with a custom HTTP status code.
// Output is buffered so a template error never leaves a half-written page.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	if data == nil {
		data = &TemplateData{}
	}
	data.CurrentPath = r.URL.Path
	data.CSRFField = csrf.TemplateField(r)

	buf := &bytes.Buffer{}
	err := t.Execute(buf, data)
	if err != nil {
		log.Printf("Template execution error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Template function implementations

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func timeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return formatDate(t)
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func levelClass(level analysis.Level) string {
	switch level {
	case analysis.LevelElite:
		return "bg-purple-100 text-purple-800"
	case analysis.LevelAdvanced:
		return "bg-green-100 text-green-800"
	case analysis.LevelIntermediate:
		return "bg-blue-100 text-blue-800"
	case analysis.LevelBeginner:
		return "bg-yellow-100 text-yellow-800"
	default:
		return "bg-gray-100 text-gray-800"
	}
}

func scoreClass(score int) string {
	switch {
	case score >= 80:
		return "text-green-600"
	case score >= 60:
		return "text-blue-600"
	case score >= 40:
		return "text-yellow-600"
	default:
		return "text-red-600"
	}
}

// barWidth clamps a score into a CSS percentage width.
func barWidth(score int) template.CSS {
	score = max(0, min(100, score))
	return template.CSS(fmt.Sprintf("width: %d%%", score))
}

// markdownToHTML escapes s and keeps its line breaks. The detailed report
// comes from a remote service and is never trusted as HTML.
func markdownToHTML(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

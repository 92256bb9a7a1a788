// Package render turns archived comments into static HTML pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/j-veylop/comment-archive/internal/config"
	"github.com/j-veylop/comment-archive/internal/models"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// Page template names.
const (
	dayTemplate    = "day.html"
	monthTemplate  = "month.html"
	yearTemplate   = "year.html"
	indexTemplate  = "index.html"
	latestTemplate = "latest.html"
)

var pageTemplates = []string{dayTemplate, monthTemplate, yearTemplate, indexTemplate, latestTemplate}

// LastUpdatedLayout formats the index page's last-updated stamp.
const LastUpdatedLayout = "2006-01-02 15:04:05 UTC"

// Renderer writes pages under an output directory.
type Renderer struct {
	templates *template.Template
	site      config.Site
	outDir    string
	written   int
}

// New creates a renderer. Templates in templateDir, if set, replace the
// embedded defaults of the same name; any the directory lacks fall back to
// the defaults.
func New(outDir, templateDir string, site *config.Site) (*Renderer, error) {
	if outDir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	if site == nil {
		site = config.DefaultSite()
	}

	r := &Renderer{outDir: outDir, site: *site}

	tmpl, err := template.New("site").Funcs(r.funcs()).ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse default templates: %w", err)
	}

	if templateDir != "" {
		matches, err := filepath.Glob(filepath.Join(templateDir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		if len(matches) > 0 {
			if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
				return nil, fmt.Errorf("failed to parse templates in %s: %w", templateDir, err)
			}
		}
	}

	for _, name := range pageTemplates {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("missing template %s", name)
		}
	}

	r.templates = tmpl
	return r, nil
}

// OutputDir returns the directory pages are written under.
func (r *Renderer) OutputDir() string {
	return r.outDir
}

// Written returns the number of pages written so far.
func (r *Renderer) Written() int {
	return r.written
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
		"link":      r.link,
		"dayPath":   DayPath,
		"monthPath": MonthPath,
		"yearPath":  YearPath,
		"dayLabel":  func(t time.Time) string { return t.Format(models.DayLayout) },
		"yearLabel": func(y int) string { return fmt.Sprintf("%04d", y) },
		"clock":     func(t time.Time) string { return t.UTC().Format("15:04:05") },
		"rfc3339":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}
}

// link prefixes a site-relative path with the configured base URL.
func (r *Renderer) link(path string) string {
	return strings.TrimRight(r.site.BaseURL, "/") + path
}

// DayPath is the site-relative URL of a day page.
func DayPath(t time.Time) string {
	return t.UTC().Format("/2006/01/02/")
}

// MonthPath is the site-relative URL of a month page.
func MonthPath(m models.Month) string {
	return fmt.Sprintf("/%04d/%02d/", m.Year, int(m.Month))
}

// YearPath is the site-relative URL of a year page.
func YearPath(year int) string {
	return fmt.Sprintf("/%04d/", year)
}

// LatestPath is the site-relative URL of the latest page.
const LatestPath = "/latest/"

// write executes a page template into <outDir><urlPath>index.html, replacing
// any previous file atomically.
func (r *Renderer) write(urlPath, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}

	target := filepath.Join(r.outDir, filepath.FromSlash(urlPath), "index.html")
	if err := writeFileAtomic(target, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	r.written++
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".index-*.html")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), fs.FileMode(0o644)); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

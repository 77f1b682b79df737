// Package web holds the dashboard's HTML templates
package web

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/briangreenhill/dentsi/dentsi"
	"github.com/briangreenhill/dentsi/internal/dashboard"
)

//go:embed templates/*.tmpl
var files embed.FS

// Funcs are the helpers every template can call
var Funcs = template.FuncMap{
	"duration": func(sec *int) string {
		if sec == nil {
			return "-"
		}
		return dashboard.FormatDuration(*sec)
	},
	"phone":  dashboard.FormatPhone,
	"status": dashboard.StatusClass,
	"money": func(v float64) string {
		return fmt.Sprintf("$%.0f", v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"name": func(r *dentsi.Ref) string {
		if r == nil {
			return "-"
		}
		return r.Name
	},
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.tmpl")
}

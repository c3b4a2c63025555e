package handlers

import (
	"net/url"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
)

// PageData is the view model for pages using the shared layout.
type PageData struct {
	Title       string
	Description string
	Lang        string
	Dir         string
	Path        string
	CSRFToken   string
	Languages   []LangOption
	Dev         bool

	// Optional per-page view model payloads
	Categories []CategoryOption
	Products   any
	Selection  any
	Chat       any
}

// LangOption is one entry of the language switcher.
type LangOption struct {
	Code    string
	Label   string
	Href    string
	Dir     string
	Current bool
}

// CategoryOption is one entry of the category filter.
type CategoryOption struct {
	Value    string
	Label    string
	Selected bool
}

var languageNames = map[string]string{
	"en": "English",
	"fr": "Français",
	"ar": "العربية",
	"he": "עברית",
	"fa": "فارسی",
	"ur": "اردو",
}

// BuildLanguages lists supported languages with switcher links that keep the current query.
func BuildLanguages(path string, query url.Values, current string, supported []string) []LangOption {
	out := make([]LangOption, 0, len(supported))
	for _, code := range supported {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("hl", code)
		label := languageNames[code]
		if label == "" {
			label = code
		}
		out = append(out, LangOption{
			Code:    code,
			Label:   label,
			Href:    path + "?" + q.Encode(),
			Dir:     i18n.Direction(code),
			Current: code == current,
		})
	}
	return out
}

// BuildCategories marks the active category. Label resolves through translate and falls back to the raw value.
func BuildCategories(categories []string, active string, translate func(key string) string) []CategoryOption {
	out := make([]CategoryOption, 0, len(categories))
	for _, c := range categories {
		label := c
		if translate != nil {
			if v := translate("category." + c); v != "" && v != "category."+c {
				label = v
			}
		}
		out = append(out, CategoryOption{Value: c, Label: label, Selected: c == active})
	}
	return out
}

package main

import (
	"net/http"
	"strings"

	handlersPkg "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/handlers"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	mw "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/middleware"
)

// HomeHandler renders the picker page: category filter, product grid, selection summary and chat.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	store := a.store(r)

	query := r.URL.Query()
	query.Del("hl")
	vm := handlersPkg.PageData{
		Title:       a.t(lang, "app.title"),
		Description: a.t(lang, "app.tagline"),
		Lang:        lang,
		Dir:         i18n.Direction(lang),
		Path:        r.URL.Path,
		CSRFToken:   mw.CSRFToken(r),
		Languages:   handlersPkg.BuildLanguages(r.URL.Path, query, lang, a.bundle.Supported()),
		Dev:         a.cfg.Server.Dev,
		Categories: handlersPkg.BuildCategories(a.categoryList(r), category, func(key string) string {
			return a.t(lang, key)
		}),
		Products:  a.buildProductsView(r, lang, category, store),
		Selection: a.buildSelectionView(r, lang, store),
		Chat:      a.buildChatView(lang, a.convs.Get(mw.GetSession(r).ID)),
	}
	a.renderPage(w, r, vm)
}

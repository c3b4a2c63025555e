package main

import (
	"net/http"
	"net/url"
	"strings"

	mw "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/middleware"
)

// ProductsFrag renders the product grid of the requested category.
func (a *app) ProductsFrag(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	view := a.buildProductsView(r, lang, category, a.store(r))
	push := "/"
	if category != "" {
		push += "?" + url.Values{"category": {category}}.Encode()
	}
	w.Header().Set("HX-Push-Url", push)
	a.renderTemplate(w, r, "frag_products", view)
}

// SelectionFrag renders the selected products summary.
func (a *app) SelectionFrag(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	a.renderTemplate(w, r, "frag_selection", a.buildSelectionView(r, lang, a.store(r)))
}

// SelectionToggleHandler flips one product and answers with the refreshed grid
// plus the summary as an out-of-band swap.
func (a *app) SelectionToggleHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PostFormValue("id"))
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	lang := mw.Lang(r)
	store := a.store(r)
	store.Toggle(r.Context(), id)

	category := strings.TrimSpace(r.PostFormValue("category"))
	a.renderFragments(w, r,
		fragment{"frag_products", a.buildProductsView(r, lang, category, store)},
		fragment{"oob_selection", a.buildSelectionView(r, lang, store)},
	)
}

// SelectionRemoveHandler drops one product from the summary.
func (a *app) SelectionRemoveHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PostFormValue("id"))
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	store := a.store(r)
	store.Remove(r.Context(), id)
	a.renderSelectionChange(w, r)
}

// SelectionClearHandler empties the selection.
func (a *app) SelectionClearHandler(w http.ResponseWriter, r *http.Request) {
	a.store(r).Clear(r.Context())
	a.renderSelectionChange(w, r)
}

// renderSelectionChange answers with the summary plus, when a category is
// showing, the grid as an out-of-band swap so card states follow.
func (a *app) renderSelectionChange(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	store := a.store(r)
	parts := []fragment{{"frag_selection", a.buildSelectionView(r, lang, store)}}
	if category := strings.TrimSpace(r.PostFormValue("category")); category != "" {
		parts = append(parts, fragment{"oob_products", a.buildProductsView(r, lang, category, store)})
	}
	a.renderFragments(w, r, parts...)
}

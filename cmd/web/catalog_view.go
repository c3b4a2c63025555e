package main

import (
	"net/http"
	"strings"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/selection"
)

// Grid states.
const (
	gridPlaceholder = "placeholder"
	gridError       = "error"
	gridEmpty       = "empty"
	gridList        = "list"
)

type productCard struct {
	ID          string
	Name        string
	Brand       string
	Category    string
	Image       string
	Description string
	Selected    bool
}

// productsView is the view model of the product grid.
type productsView struct {
	Lang     string
	Dir      string
	Category string
	State    string
	Products []productCard
}

// buildProductsView renders the cards of one category with their selected state taken from store.
func (a *app) buildProductsView(r *http.Request, lang, category string, store *selection.Store) productsView {
	view := productsView{
		Lang:     lang,
		Dir:      i18n.Direction(lang),
		Category: strings.TrimSpace(category),
		State:    gridPlaceholder,
	}
	if view.Category == "" {
		return view
	}
	products, err := a.loadCatalog(r)
	if err != nil {
		view.State = gridError
		return view
	}
	matches := catalog.ByCategory(products, view.Category)
	if len(matches) == 0 {
		view.State = gridEmpty
		return view
	}
	view.State = gridList
	view.Products = make([]productCard, 0, len(matches))
	for _, p := range matches {
		view.Products = append(view.Products, productCard{
			ID:          p.ID.String(),
			Name:        p.Name,
			Brand:       p.Brand,
			Category:    p.Category,
			Image:       p.Image,
			Description: p.Description,
			Selected:    store.Contains(p.ID),
		})
	}
	return view
}

// categoryList lists the catalog categories. A failed load yields none.
func (a *app) categoryList(r *http.Request) []string {
	products, err := a.loadCatalog(r)
	if err != nil {
		return nil
	}
	return catalog.Categories(products)
}

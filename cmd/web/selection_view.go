package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/observability"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/selection"
)

type selectionItem struct {
	ID    string
	Name  string
	Brand string
}

// selectionView is the view model of the selected products summary.
type selectionView struct {
	Lang      string
	Dir       string
	Items     []selectionItem
	ShowClear bool
}

// buildSelectionView resolves the store against the catalog. Unresolvable ids
// are skipped unless stale pruning is enabled, in which case they are dropped from the store.
func (a *app) buildSelectionView(r *http.Request, lang string, store *selection.Store) selectionView {
	products, err := a.loadCatalog(r)
	if err == nil && a.cfg.Selection.PruneStale {
		idx := catalog.Index(products)
		if n := store.Retain(r.Context(), func(id string) bool { _, ok := idx[id]; return ok }); n > 0 {
			observability.FromContext(r.Context()).Info("pruned stale selection ids", zap.Int("dropped", n))
		}
	}
	sum := selection.Summarize(products, store.IDs())
	view := selectionView{
		Lang:      lang,
		Dir:       i18n.Direction(lang),
		ShowClear: sum.ShowClear,
		Items:     make([]selectionItem, 0, len(sum.Items)),
	}
	for _, p := range sum.Items {
		view.Items = append(view.Items, selectionItem{ID: p.ID.String(), Name: p.Name, Brand: p.Brand})
	}
	return view
}

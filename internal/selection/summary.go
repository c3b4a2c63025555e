package selection

import "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"

// Summary is the derived state of the selection summary view.
type Summary struct {
	Items []catalog.Product
	// Stale counts selected ids that no catalog product resolves.
	Stale int
	// ShowClear drives the bulk-clear control; it is true iff Items is non-empty.
	ShowClear bool
}

// Empty reports whether there is nothing to show.
func (s Summary) Empty() bool { return len(s.Items) == 0 }

// Summarize resolves ids against products in selection order. Ids without a
// matching product are skipped, not removed.
func Summarize(products []catalog.Product, ids []string) Summary {
	idx := catalog.Index(products)
	out := Summary{Items: make([]catalog.Product, 0, len(ids))}
	for _, id := range ids {
		p, ok := idx[catalog.CanonicalID(id)]
		if !ok {
			out.Stale++
			continue
		}
		out.Items = append(out.Items, p)
	}
	out.ShowClear = len(out.Items) > 0
	return out
}

// Selected returns the products of the store, in selection order.
func Selected(products []catalog.Product, s *Store) []catalog.Product {
	if s == nil {
		return nil
	}
	return Summarize(products, s.IDs()).Items
}

package worldview

import "strings"

const (
	// TrueColorMarker identifies natural-color base imagery layers by id.
	TrueColorMarker = "CorrectedReflectance_TrueColor"

	// DefaultTrueColorLayer is used whenever no catalog is available.
	DefaultTrueColorLayer = "MODIS_Terra_CorrectedReflectance_TrueColor"

	trueColorTitleMarker = "True Color"
	trueColorQueryHint   = "true color"
)

// preferredTrueColor is consulted in order before scanning the catalog.
var preferredTrueColor = []string{
	"VIIRS_SNPP_CorrectedReflectance_TrueColor",
	"MODIS_Terra_CorrectedReflectance_TrueColor",
	"MODIS_Aqua_CorrectedReflectance_TrueColor",
}

// HasTrueColorHint reports whether the query asks for true-color imagery.
func HasTrueColorHint(query string) bool {
	return strings.Contains(strings.ToLower(query), trueColorQueryHint)
}

// PreferredTrueColor picks the base layer for a catalog: the first preferred
// id present, else the first layer whose id or title looks true-color.
func PreferredTrueColor(catalog *LayerCatalog) (string, bool) {
	for _, id := range preferredTrueColor {
		if catalog.Has(id) {
			return id, true
		}
	}
	for id, meta := range catalog.All() {
		if strings.Contains(id, TrueColorMarker) || strings.Contains(meta.Title, trueColorTitleMarker) {
			return id, true
		}
	}
	return "", false
}

// EnsureTrueColor puts a true-color base layer at the front of sel when the
// query hints at it or exactly one layer is selected. A selection that
// already has a true-color layer is left alone. With an unavailable catalog
// the default layer id is used. A hinted query always ends with an id that
// carries TrueColorMarker, so a catalog that only offers a title match, or
// nothing, also yields the default.
func EnsureTrueColor(sel *Selection, catalog CatalogResult, hint bool) {
	if sel.HasTrueColor() {
		return
	}
	if !hint && sel.Len() != 1 {
		return
	}

	id := DefaultTrueColorLayer
	if catalog.Available() {
		found, ok := PreferredTrueColor(catalog.Catalog)
		switch {
		case ok && (!hint || strings.Contains(found, TrueColorMarker)):
			id = found
		case !hint:
			return
		}
	}
	sel.PushFront(id)
}

package worldview

import "strings"

// DefaultViewerURL is the Worldview application root.
const DefaultViewerURL = "https://worldview.earthdata.nasa.gov/"

// View is a fully resolved viewer state.
type View struct {
	Layers []string `json:"layers"`
	Date   string   `json:"date"`
	BBox   string   `json:"bbox"`
}

// URL renders the view as a Worldview deep link. Parameters appear in the
// fixed order l, t, v; l is omitted when no layers are selected. Values are
// written verbatim because Worldview reads them unescaped.
func (v View) URL(base string) string {
	return BuildURL(base, v.Layers, v.Date, v.BBox)
}

// BuildURL composes base?l=<ids>&t=<date>&v=<bbox>.
func BuildURL(base string, layers []string, date, bbox string) string {
	params := make([]string, 0, 3)
	if len(layers) > 0 {
		params = append(params, "l="+strings.Join(layers, ","))
	}
	params = append(params, "t="+date, "v="+bbox)
	return base + "?" + strings.Join(params, "&")
}

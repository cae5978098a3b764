package worldview

import "strings"

// WorldBBox is the full extent used when nothing narrower is known.
const WorldBBox = "-180,-90,180,90"

// ResolveBBox returns explicit verbatim when set, else the extent of the
// first place name found in query, else WorldBBox.
func ResolveBBox(query, explicit string) string {
	if explicit != "" {
		return explicit
	}
	q := strings.ToLower(query)
	for _, p := range placeHints {
		if strings.Contains(q, p.Name) {
			return p.BBox
		}
	}
	return WorldBBox
}

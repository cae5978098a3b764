package worldview

import "strings"

// maxOfflinePicks caps MatchOffline results.
const maxOfflinePicks = 3

// MatchOffline picks layers from a fixed keyword table without consulting
// the catalog. It is used both when the catalog is unavailable and to top
// up catalog-based selections.
func MatchOffline(query string) []string {
	q := strings.ToLower(query)
	out := make([]string, 0, maxOfflinePicks)
	for _, g := range offlineGroups {
		if !containsAny(q, g.Keywords) || contains(out, g.LayerID) {
			continue
		}
		out = append(out, g.LayerID)
		if len(out) == maxOfflinePicks {
			break
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

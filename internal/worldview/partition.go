package worldview

import "strings"

// phraseSeparators are applied one after another, each to the output of
// the previous split.
var phraseSeparators = []string{"+", ",", " and ", " & "}

// connectorPrefixes are stripped from the start of a phrase. Only the
// first matching prefix is removed.
var connectorPrefixes = []string{
	"show ", "give me ", "display ", "visualize ", "map ",
	"over ", "in ", "around ", "near ",
}

// Partition splits a free-text query into independent phenomenon phrases,
// e.g. "true color + smoke over amazon" -> ["true color", "smoke over amazon"].
// An empty query yields a single empty phrase.
func Partition(query string) []string {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return []string{""}
	}

	parts := []string{q}
	for _, sep := range phraseSeparators {
		next := make([]string, 0, len(parts))
		for _, p := range parts {
			for _, piece := range strings.Split(p, sep) {
				if piece = strings.TrimSpace(piece); piece != "" {
					next = append(next, piece)
				}
			}
		}
		parts = next
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(stripConnector(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func stripConnector(phrase string) string {
	for _, prefix := range connectorPrefixes {
		if strings.HasPrefix(phrase, prefix) {
			return phrase[len(prefix):]
		}
	}
	return phrase
}

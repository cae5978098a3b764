package worldview

import "strings"

// Score weights.
const (
	scorePhraseMatch = 10
	scoreTitleToken  = 2
	scoreIDToken     = 1
	scoreHintPattern = 3
)

// ScoredCandidate is a layer with its score for one phrase.
type ScoredCandidate struct {
	LayerID string
	Score   int
}

// Score rates how well one catalog layer matches one query phrase. The
// phrase is expected to be lower-cased already (see Partition).
func Score(layerID string, meta LayerMeta, phrase string) int {
	id := strings.ToLower(layerID)
	title := strings.ToLower(meta.Title)

	score := 0
	if phrase != "" && (strings.Contains(title, phrase) || strings.Contains(id, phrase)) {
		score += scorePhraseMatch
	}

	for _, tok := range strings.Fields(strings.ReplaceAll(phrase, ",", " ")) {
		if strings.Contains(title, tok) {
			score += scoreTitleToken
		}
		if strings.Contains(id, tok) {
			score += scoreIDToken
		}
	}

	for _, hint := range keywordHints {
		if !strings.Contains(phrase, hint.Keyword) {
			continue
		}
		for _, pat := range hint.Patterns {
			p := strings.ToLower(pat)
			if strings.Contains(id, p) || strings.Contains(title, p) {
				score += scoreHintPattern
			}
		}
	}
	return score
}

// ScoreAll returns every layer with a positive score, in catalog order.
func ScoreAll(catalog *LayerCatalog, phrase string) []ScoredCandidate {
	var out []ScoredCandidate
	for id, meta := range catalog.All() {
		if s := Score(id, meta, phrase); s > 0 {
			out = append(out, ScoredCandidate{LayerID: id, Score: s})
		}
	}
	return out
}

// SelectBest returns the highest-scoring layer for phrase that is not
// already in taken. Ties go to the layer that appears first in the catalog.
func SelectBest(catalog *LayerCatalog, phrase string, taken *Selection) (string, bool) {
	best := ScoredCandidate{}
	for id, meta := range catalog.All() {
		if taken != nil && taken.Contains(id) {
			continue
		}
		s := Score(id, meta, phrase)
		if s > best.Score {
			best = ScoredCandidate{LayerID: id, Score: s}
		}
	}
	return best.LayerID, best.Score > 0
}

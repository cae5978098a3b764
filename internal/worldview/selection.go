package worldview

import "strings"

// MaxLayers bounds every selection and every generated URL.
const MaxLayers = 4

// Selection is an ordered, duplicate-free list of layer ids with a fixed
// capacity. Insertion order is the order in which ids were decided.
type Selection struct {
	ids []string
	max int
}

// NewSelection returns an empty selection holding at most max ids.
func NewSelection(max int) *Selection {
	return &Selection{ids: make([]string, 0, max), max: max}
}

// Add appends id unless it is empty, already present, or the selection is
// full. It reports whether id was appended.
func (s *Selection) Add(id string) bool {
	if id == "" || s.Contains(id) || s.Full() {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// PushFront inserts id at the front unless it is already present. The
// selection may temporarily exceed its capacity; Truncate restores it.
func (s *Selection) PushFront(id string) bool {
	if id == "" || s.Contains(id) {
		return false
	}
	s.ids = append([]string{id}, s.ids...)
	return true
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// HasTrueColor reports whether any selected id carries the true-color marker.
func (s *Selection) HasTrueColor() bool {
	for _, id := range s.ids {
		if strings.Contains(id, TrueColorMarker) {
			return true
		}
	}
	return false
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// Full reports whether the selection reached its capacity.
func (s *Selection) Full() bool { return len(s.ids) >= s.max }

// Truncate drops every id beyond the capacity, preserving order.
func (s *Selection) Truncate() {
	if len(s.ids) > s.max {
		s.ids = s.ids[:s.max]
	}
}

// IDs returns a copy of the selected ids in order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

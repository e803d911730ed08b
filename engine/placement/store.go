// Package placement keeps the ordered log of stamp placements for one
// document session. The log only ever changes by append, remove-last (undo)
// or clear-all (reset), so insertion order doubles as undo order and as the
// round-robin index order per variant.
package placement

import "sync"

// Placement is a single stamp instance anchored to one page. X and Y are
// canvas-space pixel coordinates of the stamp's center. HeightPx is the
// rendered height frozen at creation time, later changes to the default
// height never resize placements already made.
type Placement struct {
	PageIndex    int     `json:"pageIndex"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Variant      string  `json:"variant"`
	VariantIndex int     `json:"variantIndex"`
	HeightPx     int     `json:"heightPx"`
}

// Store is an append-only placement log scoped to one document session.
// Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	placements []Placement
}

// NewStore returns an empty placement log
func NewStore() *Store {
	return &Store{}
}

// Append records a new placement. The caller supplies the click position,
// page, variant and height; the store assigns VariantIndex as the count of
// placements already made with the same variant, which cycles successive
// placements through the variant's stamp images.
func (s *Store) Append(pageIndex int, x, y float64, variant string, heightPx int) Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Placement{
		PageIndex:    pageIndex,
		X:            x,
		Y:            y,
		Variant:      variant,
		VariantIndex: s.countVariantLocked(variant),
		HeightPx:     heightPx,
	}
	s.placements = append(s.placements, p)
	return p
}

// Undo removes the most recent placement. Reports false if the log was
// already empty.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.placements) == 0 {
		return false
	}
	s.placements = s.placements[:len(s.placements)-1]
	return true
}

// Reset clears the whole log
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.placements = nil
}

// Len returns the number of placements in the log
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.placements)
}

// All returns a copy of the log in insertion order
func (s *Store) All() []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Placement, len(s.placements))
	copy(out, s.placements)
	return out
}

// ForPage returns the placements belonging to one page, in log order
func (s *Store) ForPage(pageIndex int) []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Placement, 0)
	for _, p := range s.placements {
		if p.PageIndex == pageIndex {
			out = append(out, p)
		}
	}
	return out
}

// CountVariant returns how many placements of a variant have been made
func (s *Store) CountVariant(variant string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countVariantLocked(variant)
}

func (s *Store) countVariantLocked(variant string) int {
	count := 0
	for _, p := range s.placements {
		if p.Variant == variant {
			count++
		}
	}
	return count
}

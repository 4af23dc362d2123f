package canvas

// Selection is an insertion-ordered set of selected item ids.
type Selection struct {
	ids []string
	set map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// OnItemClick replaces the selection with id, or toggles id when additive
// (Ctrl/Cmd-click). It reports whether the selection changed.
func (s *Selection) OnItemClick(id string, additive bool) bool {
	if id == "" {
		return false
	}
	if !additive {
		if len(s.ids) == 1 && s.ids[0] == id {
			return false
		}
		s.clear()
		s.add(id)
		return true
	}
	if s.Contains(id) {
		s.remove(id)
	} else {
		s.add(id)
	}
	return true
}

// OnBackgroundClick clears the selection.
func (s *Selection) OnBackgroundClick() bool {
	if len(s.ids) == 0 {
		return false
	}
	s.clear()
	return true
}

// OnItemDragStart selects id exclusively unless it is already selected, in
// which case the existing (possibly multi-item) selection is kept.
func (s *Selection) OnItemDragStart(id string) bool {
	if s.Contains(id) {
		return false
	}
	return s.OnItemClick(id, false)
}

// OnItemRemoved drops id from the selection if present.
func (s *Selection) OnItemRemoved(id string) bool {
	if !s.Contains(id) {
		return false
	}
	s.remove(id)
	return true
}

// Prune removes every id for which alive returns false.
func (s *Selection) Prune(alive func(id string) bool) bool {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if alive(id) {
			kept = append(kept, id)
			continue
		}
		delete(s.set, id)
	}
	changed := len(kept) != len(s.ids)
	s.ids = kept
	return changed
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.set[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

// First returns the earliest selected id still in the selection.
func (s *Selection) First() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[0], true
}

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) add(id string) {
	s.ids = append(s.ids, id)
	s.set[id] = struct{}{}
}

func (s *Selection) remove(id string) {
	delete(s.set, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

func (s *Selection) clear() {
	s.ids = s.ids[:0]
	clear(s.set)
}

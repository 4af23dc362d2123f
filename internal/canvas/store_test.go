package canvas

import (
	"context"
	"fmt"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

// memItems is a minimal in-memory ItemStore for tests.
type memItems struct {
	items      []*domain.Item
	replaces   int
	listErr    error
	replaceErr error
}

func newMemItems(items ...*domain.Item) *memItems {
	return &memItems{items: items}
}

func (m *memItems) ListItems(_ context.Context) ([]*domain.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Item, len(m.items))
	for i, it := range m.items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (m *memItems) ReplaceItem(_ context.Context, id string, item *domain.Item) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	for i, it := range m.items {
		if it.ID == id {
			m.items[i] = item.Clone()
			m.replaces++
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
}

func (m *memItems) get(id string) *domain.Item {
	for _, it := range m.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (m *memItems) remove(id string) {
	for i, it := range m.items {
		if it.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

func material(id string, areaID string, row, col int) *domain.Item {
	return &domain.Item{
		ID:       id,
		Name:     "Material " + id,
		Category: "Structural",
		Quantity: 10,
		Status:   domain.StatusAvailable,
		Position: domain.Position{AreaID: areaID, Row: row, Col: col},
	}
}

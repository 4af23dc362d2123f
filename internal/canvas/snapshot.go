package canvas

import (
	"context"
	"fmt"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

// Snapshot is the committed state handed to the rendering layer.
type Snapshot struct {
	Version   uint64        `json:"version"`
	Viewport  ViewportState `json:"viewport"`
	Policy    string        `json:"policy"`
	Gesture   string        `json:"gesture"`
	Areas     []AreaView    `json:"areas"`
	Items     []ItemView    `json:"items"`
	Selection []string      `json:"selection"`
}

type AreaView struct {
	domain.Area
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ItemCount int     `json:"itemCount"`
}

type ItemView struct {
	*domain.Item
	// Center is the world point the item is drawn at; nil when its area is
	// not registered in the session.
	Center       *Point      `json:"center,omitempty"`
	Cell         string      `json:"cell,omitempty"`
	DisplayColor string      `json:"displayColor"`
	DisplaySize  domain.Size `json:"displaySize"`
	Selected     bool        `json:"selected"`
}

// Snapshot reads the current items and builds the render state. Selection
// ids that no longer match a live item are pruned first.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list items: %w", err)
	}

	alive := make(map[string]struct{}, len(items))
	for _, it := range items {
		alive[it.ID] = struct{}{}
	}
	s.touch(s.selection.Prune(func(id string) bool {
		_, ok := alive[id]
		return ok
	}))

	snap := Snapshot{
		Version:   s.version,
		Viewport:  s.viewport.State(),
		Policy:    s.resolver.Policy().String(),
		Gesture:   s.gesture.String(),
		Areas:     make([]AreaView, 0, len(s.grids)),
		Items:     make([]ItemView, 0, len(items)),
		Selection: s.selection.IDs(),
	}
	for _, g := range s.grids {
		lo, hi := g.Bounds()
		snap.Areas = append(snap.Areas, AreaView{
			Area:      g.Area(),
			Width:     hi.X - lo.X,
			Height:    hi.Y - lo.Y,
			ItemCount: g.CountItems(items),
		})
	}
	for _, it := range items {
		v := ItemView{
			Item:         it,
			DisplayColor: it.DisplayColor(),
			DisplaySize:  it.DisplaySize(),
			Selected:     s.selection.Contains(it.ID),
		}
		if g, ok := s.byID[it.Position.AreaID]; ok && g.Contains(it.Position.Row, it.Position.Col) {
			c := g.CellCenter(it.Position.Row, it.Position.Col)
			v.Center = &c
			v.Cell = Cell{Row: it.Position.Row, Col: it.Position.Col}.Label()
		}
		snap.Items = append(snap.Items, v)
	}
	return snap, nil
}

package canvas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

type gesture int

const (
	gestureIdle gesture = iota
	gesturePan
	gestureDrag
)

func (g gesture) String() string {
	switch g {
	case gesturePan:
		return "pan"
	case gestureDrag:
		return "drag"
	default:
		return "idle"
	}
}

// Session composes the viewport, grids, resolver and selection into one
// interactive surface. Items are never cached between calls: every handler
// that needs them reads the ItemStore afresh.
type Session struct {
	viewport  *Viewport
	selection *Selection
	resolver  *Resolver
	items     ItemStore
	grids     []*Grid
	byID      map[string]*Grid

	gesture  gesture
	panStart Point
	dragItem string

	version uint64
	logger  *slog.Logger
}

func NewSession(items ItemStore, policy OccupancyPolicy, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		viewport:  NewViewport(),
		selection: NewSelection(),
		resolver:  NewResolver(policy),
		items:     items,
		byID:      make(map[string]*Grid),
		logger:    logger,
	}
}

// RegisterArea adds an area to the session. Areas are searched for drops in
// registration order. Invalid geometry is rejected with ErrInvalidArea.
func (s *Session) RegisterArea(area *domain.Area) error {
	g, err := NewGrid(area)
	if err != nil {
		return err
	}
	if _, ok := s.byID[g.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateArea, g.ID())
	}
	s.grids = append(s.grids, g)
	s.byID[g.ID()] = g
	s.touch(true)
	return nil
}

// RelabelArea updates the display name and colour of a registered area.
// Geometry cannot change once registered.
func (s *Session) RelabelArea(id, name, color string) bool {
	g, ok := s.byID[id]
	if !ok || (g.area.Name == name && g.area.Color == color) {
		return false
	}
	g.area.Name = name
	g.area.Color = color
	return s.touch(true)
}

func (s *Session) Grid(id string) (*Grid, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// Grids returns the registered grids in registration order.
func (s *Session) Grids() []*Grid {
	out := make([]*Grid, len(s.grids))
	copy(out, s.grids)
	return out
}

func (s *Session) Viewport() ViewportState { return s.viewport.State() }

// ToWorld converts a screen point using the current viewport.
func (s *Session) ToWorld(screen Point) Point { return s.viewport.ToWorld(screen) }

func (s *Session) Selection() []string { return s.selection.IDs() }

func (s *Session) IsSelected(id string) bool { return s.selection.Contains(id) }

func (s *Session) Policy() OccupancyPolicy { return s.resolver.Policy() }

// Version increases by one on every state change.
func (s *Session) Version() uint64 { return s.version }

// DraggingItem returns the item of the active drag gesture, if any.
func (s *Session) DraggingItem() (string, bool) {
	if s.gesture != gestureDrag {
		return "", false
	}
	return s.dragItem, true
}

func (s *Session) touch(changed bool) bool {
	if changed {
		s.version++
	}
	return changed
}

// RequestZoom zooms by scaleDelta keeping the world point under screen fixed.
func (s *Session) RequestZoom(screen Point, scaleDelta float64) bool {
	return s.touch(s.viewport.ZoomAt(screen, scaleDelta))
}

// RequestPan applies a one-shot pan outside of a pan gesture.
func (s *Session) RequestPan(delta Point) bool {
	return s.touch(s.viewport.PanBy(delta))
}

func (s *Session) RequestResetView() bool {
	return s.touch(s.viewport.Reset())
}

// BeginPan starts a background drag of the canvas surface.
func (s *Session) BeginPan() error {
	if s.gesture != gestureIdle {
		return fmt.Errorf("%w: %s", ErrGestureActive, s.gesture)
	}
	s.gesture = gesturePan
	s.panStart = s.viewport.Offset()
	return nil
}

// MovePan applies one frame of an active pan gesture.
func (s *Session) MovePan(delta Point) bool {
	if s.gesture != gesturePan {
		return false
	}
	return s.touch(s.viewport.PanBy(delta))
}

// EndPan commits the active pan gesture.
func (s *Session) EndPan() bool {
	if s.gesture != gesturePan {
		return false
	}
	s.gesture = gestureIdle
	return s.touch(true)
}

// CancelPan restores the offset held when the pan began.
func (s *Session) CancelPan() bool {
	if s.gesture != gesturePan {
		return false
	}
	s.gesture = gestureIdle
	s.viewport.setOffset(s.panStart)
	return s.touch(true)
}

func (s *Session) RequestSelect(id string, additive bool) bool {
	return s.touch(s.selection.OnItemClick(id, additive))
}

func (s *Session) RequestClearSelection() bool {
	return s.touch(s.selection.OnBackgroundClick())
}

// BeginItemDrag starts dragging id. An item that no longer exists cancels
// the gesture and reports false.
func (s *Session) BeginItemDrag(ctx context.Context, id string) (bool, error) {
	if s.gesture != gestureIdle {
		return false, fmt.Errorf("%w: %s", ErrGestureActive, s.gesture)
	}
	alive, err := s.itemExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !alive {
		s.logger.Debug("drag start on missing item", "item_id", id)
		return false, nil
	}
	s.selection.OnItemDragStart(id)
	s.gesture = gestureDrag
	s.dragItem = id
	s.touch(true)
	return true, nil
}

// CancelItemDrag abandons the active drag; the item stays at its committed cell.
func (s *Session) CancelItemDrag() bool {
	if s.gesture != gestureDrag {
		return false
	}
	s.gesture = gestureIdle
	s.dragItem = ""
	return s.touch(true)
}

// RequestDrop resolves a drop of id at a world point. It ends the drag
// gesture for id if one is active; a drop without a prior BeginItemDrag is
// treated as a complete drag.
func (s *Session) RequestDrop(ctx context.Context, id string, world Point) (DropResult, error) {
	switch s.gesture {
	case gesturePan:
		return DropResult{}, fmt.Errorf("%w: %s", ErrGestureActive, s.gesture)
	case gestureDrag:
		if s.dragItem != id {
			return DropResult{}, fmt.Errorf("%w: dragging %s", ErrGestureActive, s.dragItem)
		}
	default:
		s.selection.OnItemDragStart(id)
	}

	res, err := s.resolver.ResolveDrop(ctx, id, world, s.grids, s.items)
	s.gesture = gestureIdle
	s.dragItem = ""
	s.touch(true)
	if err != nil {
		return DropResult{}, err
	}

	switch res.Outcome {
	case DropStale:
		s.selection.OnItemRemoved(id)
		s.logger.Debug("drop cancelled, item no longer exists", "item_id", id)
	case DropOutside, DropOccupied:
		s.logger.Debug("drop rejected", "item_id", id, "outcome", res.Outcome.String(),
			"x", world.X, "y", world.Y)
	}
	return res, nil
}

// NotifyItemRemoved keeps the selection and any active drag free of id.
func (s *Session) NotifyItemRemoved(id string) bool {
	changed := s.selection.OnItemRemoved(id)
	if s.gesture == gestureDrag && s.dragItem == id {
		s.gesture = gestureIdle
		s.dragItem = ""
		changed = true
	}
	return s.touch(changed)
}

func (s *Session) itemExists(ctx context.Context, id string) (bool, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list items: %w", err)
	}
	for _, it := range items {
		if it.ID == id {
			return true, nil
		}
	}
	return false, nil
}

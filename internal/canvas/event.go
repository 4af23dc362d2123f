package canvas

import (
	"context"
	"fmt"
)

type EventKind string

const (
	EventZoom            EventKind = "zoom"
	EventWheel           EventKind = "wheel"
	EventPan             EventKind = "pan"
	EventPanStart        EventKind = "pan_start"
	EventPanMove         EventKind = "pan_move"
	EventPanEnd          EventKind = "pan_end"
	EventPanCancel       EventKind = "pan_cancel"
	EventResetView       EventKind = "reset_view"
	EventSelect          EventKind = "select"
	EventBackgroundClick EventKind = "background_click"
	EventDragStart       EventKind = "drag_start"
	EventDrop            EventKind = "drop"
	EventDragCancel      EventKind = "drag_cancel"
	EventItemRemoved     EventKind = "item_removed"
)

// Event is one input intent from the rendering layer. X/Y is a screen point
// for zoom and wheel events and a world point for drops; DX/DY is a
// screen-space pan delta.
type Event struct {
	Kind     EventKind `json:"type"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	DX       float64   `json:"dx,omitempty"`
	DY       float64   `json:"dy,omitempty"`
	Factor   float64   `json:"factor,omitempty"`
	DeltaY   float64   `json:"deltaY,omitempty"`
	ItemID   string    `json:"itemId,omitempty"`
	Additive bool      `json:"additive,omitempty"`
}

// Result reports what an event did.
type Result struct {
	Changed bool        `json:"changed"`
	Started bool        `json:"started,omitempty"`
	Drop    *DropResult `json:"drop,omitempty"`
}

// Dispatch routes ev to the viewport, selection or drag handling.
func (s *Session) Dispatch(ctx context.Context, ev Event) (Result, error) {
	before := s.version
	var res Result

	switch ev.Kind {
	case EventZoom:
		s.RequestZoom(Point{X: ev.X, Y: ev.Y}, ev.Factor)
	case EventWheel:
		s.RequestZoom(Point{X: ev.X, Y: ev.Y}, WheelDelta(ev.DeltaY))
	case EventPan:
		s.RequestPan(Point{X: ev.DX, Y: ev.DY})
	case EventPanStart:
		if err := s.BeginPan(); err != nil {
			return res, err
		}
		res.Started = true
	case EventPanMove:
		s.MovePan(Point{X: ev.DX, Y: ev.DY})
	case EventPanEnd:
		s.EndPan()
	case EventPanCancel:
		s.CancelPan()
	case EventResetView:
		s.RequestResetView()
	case EventSelect:
		s.RequestSelect(ev.ItemID, ev.Additive)
	case EventBackgroundClick:
		s.RequestClearSelection()
	case EventDragStart:
		started, err := s.BeginItemDrag(ctx, ev.ItemID)
		if err != nil {
			return res, err
		}
		res.Started = started
	case EventDrop:
		drop, err := s.RequestDrop(ctx, ev.ItemID, Point{X: ev.X, Y: ev.Y})
		if err != nil {
			return res, err
		}
		res.Drop = &drop
	case EventDragCancel:
		s.CancelItemDrag()
	case EventItemRemoved:
		s.NotifyItemRemoved(ev.ItemID)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	res.Changed = s.version != before
	return res, nil
}

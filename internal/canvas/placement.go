package canvas

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

// ItemStore is the external item store the core reads and writes through.
// ReplaceItem must return an error wrapping domain.ErrNotFound when id does
// not exist.
type ItemStore interface {
	ListItems(ctx context.Context) ([]*domain.Item, error)
	ReplaceItem(ctx context.Context, id string, item *domain.Item) error
}

// OccupancyPolicy decides whether a drop may land on an occupied cell.
type OccupancyPolicy int

const (
	// PolicyStrict rejects drops onto a cell held by another item.
	PolicyStrict OccupancyPolicy = iota
	// PolicyPermissive lets items co-occupy a cell.
	PolicyPermissive
)

func (p OccupancyPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyPermissive:
		return "permissive"
	default:
		return fmt.Sprintf("OccupancyPolicy(%d)", int(p))
	}
}

// ParseOccupancyPolicy accepts "strict" or "permissive" (case-insensitive).
func ParseOccupancyPolicy(s string) (OccupancyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return PolicyStrict, nil
	case "permissive":
		return PolicyPermissive, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown occupancy policy %q", s)
	}
}

// DropOutcome classifies the result of resolving a drop.
type DropOutcome int

const (
	// DropCommitted means the item's position was replaced in the store.
	DropCommitted DropOutcome = iota
	// DropUnchanged means the drop resolved to the item's current cell.
	DropUnchanged
	// DropOutside means no grid claims the drop point.
	DropOutside
	// DropOccupied means the target cell is held by another item under the strict policy.
	DropOccupied
	// DropStale means the item no longer exists; the gesture is cancelled.
	DropStale
)

func (o DropOutcome) String() string {
	switch o {
	case DropCommitted:
		return "committed"
	case DropUnchanged:
		return "unchanged"
	case DropOutside:
		return "outside"
	case DropOccupied:
		return "occupied"
	case DropStale:
		return "stale"
	default:
		return fmt.Sprintf("DropOutcome(%d)", int(o))
	}
}

func (o DropOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *DropOutcome) UnmarshalText(b []byte) error {
	for c := DropCommitted; c <= DropStale; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown drop outcome %q", b)
}

// Accepted reports whether the item ends up at the drop target.
func (o DropOutcome) Accepted() bool {
	return o == DropCommitted || o == DropUnchanged
}

// DropResult describes a resolved drop.
type DropResult struct {
	Outcome DropOutcome `json:"outcome"`
	// Item is the item after the drop, nil when stale.
	Item *domain.Item `json:"item,omitempty"`
	// Target is the cell the drop point resolved to, if any.
	Target *domain.Position `json:"target,omitempty"`
	// RevertTo is the world centre of the item's committed cell. Renderers
	// move the dragged node back here when the drop is rejected.
	RevertTo *Point `json:"revertTo,omitempty"`
}

// Resolver snaps drop points to grid cells and commits accepted placements.
type Resolver struct {
	policy OccupancyPolicy
}

func NewResolver(policy OccupancyPolicy) *Resolver {
	return &Resolver{policy: policy}
}

func (r *Resolver) Policy() OccupancyPolicy { return r.policy }

// Target returns the first grid, in slice order, that claims p.
func Target(grids []*Grid, p Point) (*Grid, Cell, bool) {
	for _, g := range grids {
		if c, ok := g.Locate(p); ok {
			return g, c, true
		}
	}
	return nil, Cell{}, false
}

// ResolveDrop places itemID at the cell under drop. Grids are searched in
// slice order and the first match wins. Rejections are reported through the
// outcome; only store failures are returned as errors.
func (r *Resolver) ResolveDrop(ctx context.Context, itemID string, drop Point, grids []*Grid, store ItemStore) (DropResult, error) {
	items, err := store.ListItems(ctx)
	if err != nil {
		return DropResult{}, fmt.Errorf("failed to list items: %w", err)
	}

	var current *domain.Item
	others := make([]*domain.Item, 0, len(items))
	for _, it := range items {
		if it.ID == itemID {
			current = it
			continue
		}
		others = append(others, it)
	}
	if current == nil {
		return DropResult{Outcome: DropStale}, nil
	}

	res := DropResult{Item: current, RevertTo: revertPoint(current, grids)}

	if !finitePoint(drop) {
		res.Outcome = DropOutside
		return res, nil
	}
	g, c, ok := Target(grids, drop)
	if !ok {
		res.Outcome = DropOutside
		return res, nil
	}
	target := domain.Position{AreaID: g.ID(), Row: c.Row, Col: c.Col}
	res.Target = &target

	if current.Position == target {
		res.Outcome = DropUnchanged
		return res, nil
	}
	if r.policy == PolicyStrict && g.IsOccupied(c.Row, c.Col, others) {
		res.Outcome = DropOccupied
		return res, nil
	}

	updated := current.Clone()
	updated.Position = target
	if err := store.ReplaceItem(ctx, itemID, updated); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DropResult{Outcome: DropStale}, nil
		}
		return DropResult{}, fmt.Errorf("failed to replace item %s: %w", itemID, err)
	}

	res.Outcome = DropCommitted
	res.Item = updated
	res.RevertTo = nil
	return res, nil
}

func revertPoint(item *domain.Item, grids []*Grid) *Point {
	for _, g := range grids {
		if g.ID() == item.Position.AreaID {
			p := g.CellCenter(item.Position.Row, item.Position.Col)
			return &p
		}
	}
	return nil
}

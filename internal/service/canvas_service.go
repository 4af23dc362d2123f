package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vbonduro/stagecanvas/internal/canvas"
	"github.com/vbonduro/stagecanvas/internal/domain"
)

var (
	// ErrInvalidItem is returned when item fields fail validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrCellOccupied is returned when a new item targets a taken cell under
	// the strict occupancy policy.
	ErrCellOccupied = errors.New("cell occupied")
	// ErrInvalidFilter is returned for an unknown status or sort in a search.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrSessionNotFound is returned for an unknown or closed session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicateItem is returned when a new item reuses a stored item id.
	ErrDuplicateItem = errors.New("duplicate item")
)

// areaRepository is the subset of store.AreaStore that CanvasService requires.
type areaRepository interface {
	Create(ctx context.Context, area *domain.Area) (*domain.Area, error)
	GetByID(ctx context.Context, id string) (*domain.Area, error)
	List(ctx context.Context) ([]*domain.Area, error)
	Rename(ctx context.Context, id, name, color string) error
}

// itemRepository is the subset of store.ItemStore that CanvasService requires.
type itemRepository interface {
	canvas.ItemStore
	Create(ctx context.Context, item *domain.Item) (*domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	ListByAreaID(ctx context.Context, areaID string) ([]*domain.Item, error)
	Search(ctx context.Context, f domain.ItemFilter) ([]*domain.Item, error)
	Categories(ctx context.Context) ([]string, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	Delete(ctx context.Context, id string) error
}

// CanvasService owns the area and item stores and the set of live canvas
// sessions. Every write to an item goes through writeMu so that a drop in one
// session and an external edit never interleave their read and replace.
type CanvasService struct {
	areaStore areaRepository
	itemStore itemRepository
	policy    canvas.OccupancyPolicy
	logger    *slog.Logger

	// Lock order is areaMu, then a session lock, then writeMu.
	//
	// areaMu covers reading the stored areas and registering them into
	// sessions, so every session sees every area in creation order.
	areaMu  sync.Mutex
	writeMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func NewCanvasService(
	areaStore areaRepository,
	itemStore itemRepository,
	policy canvas.OccupancyPolicy,
	logger *slog.Logger,
) *CanvasService {
	return &CanvasService{
		areaStore: areaStore,
		itemStore: itemStore,
		policy:    policy,
		logger:    logger,
		sessions:  make(map[string]*liveSession),
	}
}

func (s *CanvasService) Policy() canvas.OccupancyPolicy { return s.policy }

// CreateArea validates and stores an area, then registers it with every open
// session. Geometry errors wrap canvas.ErrInvalidArea.
func (s *CanvasService) CreateArea(ctx context.Context, area domain.Area) (*domain.Area, error) {
	if area.ID == "" {
		area.ID = uuid.NewString()
	}
	area.Name = strings.TrimSpace(area.Name)
	if area.Name == "" {
		area.Name = area.ID
	}
	if err := canvas.ValidateArea(&area); err != nil {
		return nil, err
	}

	s.areaMu.Lock()
	defer s.areaMu.Unlock()

	existing, err := s.areaStore.GetByID(ctx, area.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", canvas.ErrDuplicateArea, area.ID)
	}

	created, err := s.areaStore.Create(ctx, &area)
	if err != nil {
		return nil, err
	}
	s.logger.Info("area created", "area_id", created.ID, "rows", created.Rows, "columns", created.Columns)

	s.eachSession(func(ls *liveSession) {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if err := ls.canvas.RegisterArea(created); err != nil {
			s.logger.Error("failed to register area with session", "session_id", ls.id, "area_id", created.ID, "error", err)
			return
		}
		s.publishLocked(ctx, ls)
	})
	return created, nil
}

func (s *CanvasService) ListAreas(ctx context.Context) ([]*domain.Area, error) {
	return s.areaStore.List(ctx)
}

// AreaDetail bundles an area with the items placed in it.
type AreaDetail struct {
	*domain.Area
	Items []*domain.Item `json:"items"`
}

func (s *CanvasService) GetArea(ctx context.Context, id string) (*AreaDetail, error) {
	area, err := s.areaStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	if area == nil {
		return nil, fmt.Errorf("area %s: %w", id, domain.ErrNotFound)
	}

	items, err := s.itemStore.ListByAreaID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for area %s: %w", id, err)
	}
	return &AreaDetail{Area: area, Items: items}, nil
}

// RenameArea changes an area's name and colour and relabels it in every
// open session.
func (s *CanvasService) RenameArea(ctx context.Context, id, name, color string) (*domain.Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", canvas.ErrInvalidArea)
	}
	if !domain.ValidColor(color) {
		return nil, fmt.Errorf("%w: colour %q", canvas.ErrInvalidArea, color)
	}

	s.areaMu.Lock()
	defer s.areaMu.Unlock()
	if err := s.areaStore.Rename(ctx, id, name, color); err != nil {
		return nil, err
	}

	s.eachSession(func(ls *liveSession) {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if ls.canvas.RelabelArea(id, name, color) {
			s.publishLocked(ctx, ls)
		}
	})
	return s.areaStore.GetByID(ctx, id)
}

// CreateItem validates and stores a new item. Its position must name an
// existing area and lie within that area's bounds.
func (s *CanvasService) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.Status == "" {
		item.Status = domain.StatusAvailable
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	created, err := s.createItemLocked(ctx, &item)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created", "item_id", created.ID, "area_id", created.Position.AreaID,
		"row", created.Position.Row, "col", created.Position.Col)
	s.broadcast(ctx)
	return created, nil
}

func (s *CanvasService) createItemLocked(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	area, err := s.areaStore.GetByID(ctx, item.Position.AreaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	if area == nil {
		return nil, fmt.Errorf("%w: unknown area %q", ErrInvalidItem, item.Position.AreaID)
	}
	grid, err := canvas.NewGrid(area)
	if err != nil {
		return nil, err
	}
	if !grid.Contains(item.Position.Row, item.Position.Col) {
		return nil, fmt.Errorf("%w: cell (%d,%d) outside %s", ErrInvalidItem, item.Position.Row, item.Position.Col, area.ID)
	}

	if s.policy == canvas.PolicyStrict {
		items, err := s.itemStore.ListByAreaID(ctx, area.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list items for area %s: %w", area.ID, err)
		}
		if occ := grid.Occupant(item.Position.Row, item.Position.Col, items); occ != nil {
			return nil, fmt.Errorf("%w: %s is held by %s",
				ErrCellOccupied, canvas.Cell{Row: item.Position.Row, Col: item.Position.Col}.Label(), occ.ID)
		}
	}

	if item.ID != "" {
		existing, err := s.itemStore.GetByID(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get item: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
	}

	return s.itemStore.Create(ctx, item)
}

func (s *CanvasService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.itemStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

// ItemFields are the item attributes an external edit may change. Position
// is owned by the drop resolver and cannot be set here.
type ItemFields struct {
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Quantity   int               `json:"quantity"`
	Status     domain.Status     `json:"status"`
	Barcode    string            `json:"barcode"`
	Size       *domain.Size      `json:"size"`
	Color      string            `json:"color"`
	Properties map[string]string `json:"properties"`
}

// UpdateItem applies fields to the current stored item and writes it back
// with a single replace.
func (s *CanvasService) UpdateItem(ctx context.Context, id string, fields ItemFields) (*domain.Item, error) {
	s.writeMu.Lock()
	updated, err := s.updateItemLocked(ctx, id, fields)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("item updated", "item_id", id)
	s.broadcast(ctx)
	return updated, nil
}

func (s *CanvasService) updateItemLocked(ctx context.Context, id string, fields ItemFields) (*domain.Item, error) {
	current, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Name = fields.Name
	next.Category = fields.Category
	next.Quantity = fields.Quantity
	next.Status = fields.Status
	if next.Status == "" {
		next.Status = current.Status
	}
	next.Barcode = fields.Barcode
	next.Size = fields.Size
	next.Color = fields.Color
	next.Properties = fields.Properties
	if err := validateItem(next); err != nil {
		return nil, err
	}

	if err := s.itemStore.ReplaceItem(ctx, id, next); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return s.itemStore.GetByID(ctx, id)
}

// DeleteItem removes an item from the store and from every session's
// selection and drag state.
func (s *CanvasService) DeleteItem(ctx context.Context, id string) error {
	s.writeMu.Lock()
	err := s.itemStore.Delete(ctx, id)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.logger.Info("item deleted", "item_id", id)

	s.eachSession(func(ls *liveSession) {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		ls.canvas.NotifyItemRemoved(id)
		s.publishLocked(ctx, ls)
	})
	return nil
}

func (s *CanvasService) SearchItems(ctx context.Context, f domain.ItemFilter) ([]*domain.Item, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidFilter, f.Status)
	}
	switch f.Sort {
	case "", "name", "category", "quantity", "status":
	default:
		return nil, fmt.Errorf("%w: sort %q", ErrInvalidFilter, f.Sort)
	}
	return s.itemStore.Search(ctx, f)
}

func (s *CanvasService) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.itemStore.ListItems(ctx)
}

func (s *CanvasService) Categories(ctx context.Context) ([]string, error) {
	return s.itemStore.Categories(ctx)
}

// Stats is the quick summary shown beside the canvas.
type Stats struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"byStatus"`
	Areas    int                   `json:"areas"`
	Sessions int                   `json:"sessions"`
}

func (s *CanvasService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.itemStore.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	areas, err := s.areaStore.List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{ByStatus: counts, Areas: len(areas)}
	for _, n := range counts {
		st.Total += n
	}
	s.mu.RLock()
	st.Sessions = len(s.sessions)
	s.mu.RUnlock()
	return st, nil
}

// Seed loads areas and items into an empty store. It reports false without
// writing anything when at least one area already exists. The whole layout
// is checked first; a layout with any bad area or item writes nothing.
func (s *CanvasService) Seed(ctx context.Context, areas []domain.Area, items []domain.Item) (bool, error) {
	existing, err := s.areaStore.List(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := s.checkLayout(areas, items); err != nil {
		return false, fmt.Errorf("failed to seed layout: %w", err)
	}

	for _, a := range areas {
		if _, err := s.CreateArea(ctx, a); err != nil {
			return false, fmt.Errorf("failed to seed area %s: %w", a.ID, err)
		}
	}
	for _, it := range items {
		if _, err := s.CreateItem(ctx, it); err != nil {
			return false, fmt.Errorf("failed to seed item %q: %w", it.Name, err)
		}
	}
	s.logger.Info("layout seeded", "areas", len(areas), "items", len(items))
	return true, nil
}

// checkLayout applies the CreateArea and CreateItem rules to a whole layout
// without touching the stores.
func (s *CanvasService) checkLayout(areas []domain.Area, items []domain.Item) error {
	grids := make(map[string]*canvas.Grid, len(areas))
	for _, a := range areas {
		if a.ID == "" {
			return fmt.Errorf("%w: layout area %q has no id", canvas.ErrInvalidArea, a.Name)
		}
		if _, ok := grids[a.ID]; ok {
			return fmt.Errorf("%w: %s", canvas.ErrDuplicateArea, a.ID)
		}
		g, err := canvas.NewGrid(&a)
		if err != nil {
			return err
		}
		grids[a.ID] = g
	}

	placed := make(map[string][]*domain.Item, len(grids))
	ids := make(map[string]struct{}, len(items))
	for _, it := range items {
		item := it.Clone()
		if item.Status == "" {
			item.Status = domain.StatusAvailable
		}
		if err := validateItem(item); err != nil {
			return err
		}
		if item.ID != "" {
			if _, ok := ids[item.ID]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
			}
			ids[item.ID] = struct{}{}
		}

		pos := item.Position
		g, ok := grids[pos.AreaID]
		if !ok {
			return fmt.Errorf("%w: %q names unknown area %q", ErrInvalidItem, item.Name, pos.AreaID)
		}
		if !g.Contains(pos.Row, pos.Col) {
			return fmt.Errorf("%w: %q at cell (%d,%d) outside %s", ErrInvalidItem, item.Name, pos.Row, pos.Col, pos.AreaID)
		}
		if s.policy == canvas.PolicyStrict {
			if occ := g.Occupant(pos.Row, pos.Col, placed[pos.AreaID]); occ != nil {
				return fmt.Errorf("%w: %q and %q share %s", ErrCellOccupied,
					occ.Name, item.Name, canvas.Cell{Row: pos.Row, Col: pos.Col}.Label())
			}
		}
		placed[pos.AreaID] = append(placed[pos.AreaID], item)
	}
	return nil
}

func validateItem(item *domain.Item) error {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	case item.Quantity < 0:
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidItem, item.Quantity)
	case !item.Status.Valid():
		return fmt.Errorf("%w: status %q", ErrInvalidItem, item.Status)
	case item.Size != nil && (item.Size.Width <= 0 || item.Size.Height <= 0):
		return fmt.Errorf("%w: size %gx%g", ErrInvalidItem, item.Size.Width, item.Size.Height)
	case !domain.ValidColor(item.Color):
		return fmt.Errorf("%w: colour %q", ErrInvalidItem, item.Color)
	}
	return nil
}

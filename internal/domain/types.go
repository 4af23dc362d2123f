package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Area is a staging area: a fixed rectangular grid of cells at a world-space origin.
// Areas are pure geometry; the items placed in them are found by scanning item positions.
type Area struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Rows       int       `json:"rows" yaml:"rows"`
	Columns    int       `json:"columns" yaml:"columns"`
	CellWidth  float64   `json:"cellWidth" yaml:"cellWidth"`
	CellHeight float64   `json:"cellHeight" yaml:"cellHeight"`
	OriginX    float64   `json:"originX" yaml:"originX"`
	OriginY    float64   `json:"originY" yaml:"originY"`
	Color      string    `json:"color,omitempty" yaml:"color"`
	CreatedAt  time.Time `json:"createdAt" yaml:"-"`
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusInUse     Status = "in-use"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusInUse:
		return true
	default:
		return false
	}
}

// Color is the fill used for items that carry no explicit colour override.
func (s Status) Color() string {
	switch s {
	case StatusAvailable:
		return "#10B981"
	case StatusReserved:
		return "#F59E0B"
	case StatusInUse:
		return "#EF4444"
	default:
		return "#6B7280"
	}
}

// ValidColor reports whether c is empty or a #RRGGBB hex colour.
func ValidColor(c string) bool {
	if c == "" {
		return true
	}
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Position is the single logical placement of an item.
type Position struct {
	AreaID string `json:"areaId" yaml:"areaId"`
	Row    int    `json:"row" yaml:"row"`
	Col    int    `json:"col" yaml:"col"`
}

type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DefaultItemSize is used by renderers when an item has no display size.
var DefaultItemSize = Size{Width: 70, Height: 50}

// Item is a countable material placed in exactly one cell of one area.
type Item struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Category   string            `json:"category" yaml:"category"`
	Quantity   int               `json:"quantity" yaml:"quantity"`
	Status     Status            `json:"status" yaml:"status"`
	Barcode    string            `json:"barcode,omitempty" yaml:"barcode"`
	Position   Position          `json:"position" yaml:"position"`
	Size       *Size             `json:"size,omitempty" yaml:"size"`
	Color      string            `json:"color,omitempty" yaml:"color"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties"`
	CreatedAt  time.Time         `json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time         `json:"updatedAt" yaml:"-"`
}

// DisplayColor returns the explicit colour override, else the status colour.
func (i *Item) DisplayColor() string {
	if i.Color != "" {
		return i.Color
	}
	return i.Status.Color()
}

// DisplaySize returns the item's size or DefaultItemSize.
func (i *Item) DisplaySize() Size {
	if i.Size != nil && i.Size.Width > 0 && i.Size.Height > 0 {
		return *i.Size
	}
	return DefaultItemSize
}

// Clone returns a copy that shares no mutable state with i.
func (i *Item) Clone() *Item {
	c := *i
	if i.Size != nil {
		s := *i.Size
		c.Size = &s
	}
	if i.Properties != nil {
		c.Properties = make(map[string]string, len(i.Properties))
		for k, v := range i.Properties {
			c.Properties[k] = v
		}
	}
	return &c
}

// ItemFilter narrows and orders an item search.
type ItemFilter struct {
	// Query matches name, category or barcode, case-insensitively.
	Query    string
	Status   Status
	Category string
	AreaID   string
	// Sort is one of name, category, quantity (descending) or status.
	Sort string
}

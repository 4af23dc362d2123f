package canvas

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

// Cell addresses one cell of a grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Label renders the cell as a spreadsheet-style reference: row letter then
// 1-based column, e.g. A1, C10. Rows past Z continue as AA, AB, ...
func (c Cell) Label() string {
	return RowLabel(c.Row) + strconv.Itoa(c.Col+1)
}

// RowLabel is the letter part of a cell label for row.
func RowLabel(row int) string {
	if row < 0 {
		return "?"
	}
	var b []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// Grid is the geometry of one staging area. It stores no items.
type Grid struct {
	area   domain.Area
	origin Point
	cell   Point
}

// ValidateArea checks that an area can form a grid.
func ValidateArea(area *domain.Area) error {
	switch {
	case area == nil:
		return fmt.Errorf("%w: nil area", ErrInvalidArea)
	case area.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidArea)
	case area.Rows <= 0 || area.Columns <= 0:
		return fmt.Errorf("%w: %s has %dx%d cells", ErrInvalidArea, area.ID, area.Rows, area.Columns)
	case !finite(area.CellWidth) || !finite(area.CellHeight) || area.CellWidth <= 0 || area.CellHeight <= 0:
		return fmt.Errorf("%w: %s has cell size %gx%g", ErrInvalidArea, area.ID, area.CellWidth, area.CellHeight)
	case !finite(area.OriginX) || !finite(area.OriginY):
		return fmt.Errorf("%w: %s has non-finite origin", ErrInvalidArea, area.ID)
	case !domain.ValidColor(area.Color):
		return fmt.Errorf("%w: %s has colour %q", ErrInvalidArea, area.ID, area.Color)
	}
	return nil
}

// NewGrid builds the grid for area. The area is copied; later edits to it
// do not affect the grid.
func NewGrid(area *domain.Area) (*Grid, error) {
	if err := ValidateArea(area); err != nil {
		return nil, err
	}
	return &Grid{
		area:   *area,
		origin: Point{X: area.OriginX, Y: area.OriginY},
		cell:   Point{X: area.CellWidth, Y: area.CellHeight},
	}, nil
}

func (g *Grid) ID() string { return g.area.ID }

// Area returns a copy of the area the grid was built from.
func (g *Grid) Area() domain.Area { return g.area }

func (g *Grid) Rows() int { return g.area.Rows }

func (g *Grid) Columns() int { return g.area.Columns }

// Bounds returns the top-left and bottom-right world corners.
// The bottom-right corner itself lies outside the grid.
func (g *Grid) Bounds() (topLeft, bottomRight Point) {
	return g.origin, Point{
		X: g.origin.X + float64(g.area.Columns)*g.cell.X,
		Y: g.origin.Y + float64(g.area.Rows)*g.cell.Y,
	}
}

// Contains reports whether (row, col) is a valid cell address.
func (g *Grid) Contains(row, col int) bool {
	return row >= 0 && row < g.area.Rows && col >= 0 && col < g.area.Columns
}

// CellCenter returns the world point at the centre of the cell.
func (g *Grid) CellCenter(row, col int) Point {
	return Point{
		X: g.origin.X + (float64(col)+0.5)*g.cell.X,
		Y: g.origin.Y + (float64(row)+0.5)*g.cell.Y,
	}
}

// Locate maps a world point to the cell containing it. Left and top edges
// are inclusive, right and bottom edges exclusive.
func (g *Grid) Locate(p Point) (Cell, bool) {
	lo, hi := g.Bounds()
	if !(p.X >= lo.X && p.X < hi.X && p.Y >= lo.Y && p.Y < hi.Y) {
		return Cell{}, false
	}
	c := Cell{
		Row: int(math.Floor((p.Y - lo.Y) / g.cell.Y)),
		Col: int(math.Floor((p.X - lo.X) / g.cell.X)),
	}
	// Floating point can still round a point just inside hi onto the boundary.
	if !g.Contains(c.Row, c.Col) {
		return Cell{}, false
	}
	return c, true
}

// Occupant returns the first item placed at (row, col) in this grid, or nil.
func (g *Grid) Occupant(row, col int, items []*domain.Item) *domain.Item {
	for _, it := range items {
		if it.Position.AreaID == g.area.ID && it.Position.Row == row && it.Position.Col == col {
			return it
		}
	}
	return nil
}

// IsOccupied reports whether any item in items is placed at (row, col).
func (g *Grid) IsOccupied(row, col int, items []*domain.Item) bool {
	return g.Occupant(row, col, items) != nil
}

// CountItems returns how many items are placed in this grid.
func (g *Grid) CountItems(items []*domain.Item) int {
	n := 0
	for _, it := range items {
		if it.Position.AreaID == g.area.ID {
			n++
		}
	}
	return n
}

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/stagecanvas/internal/canvas"
	"github.com/vbonduro/stagecanvas/internal/domain"
)

const materialsSheet = "Materials"

var materialsHeader = []string{"Cell", "Name", "Category", "Quantity", "Status", "Barcode", "ID"}

// WriteLayout writes an xlsx workbook for area to w. The first sheet mirrors
// the grid: one spreadsheet cell per staging cell, filled with the colour of
// the item placed there. The second sheet lists the area's items.
func WriteLayout(w io.Writer, area *domain.Area, items []*domain.Item) error {
	grid, err := canvas.NewGrid(area)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(area.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeGrid(f, sheet, grid, items); err != nil {
		return err
	}
	if _, err := f.NewSheet(materialsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := writeMaterials(f, grid, items); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeGrid(f *excelize.File, sheet string, grid *canvas.Grid, items []*domain.Item) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for c := 0; c < grid.Columns(); c++ {
		if err := setCell(f, sheet, c+2, 1, c+1, header); err != nil {
			return err
		}
	}

	fills := make(map[string]int)
	for r := 0; r < grid.Rows(); r++ {
		if err := setCell(f, sheet, 1, r+2, canvas.RowLabel(r), header); err != nil {
			return err
		}
		for c := 0; c < grid.Columns(); c++ {
			var names []string
			color := ""
			for _, it := range items {
				if it.Position.AreaID == grid.ID() && it.Position.Row == r && it.Position.Col == c {
					names = append(names, it.Name)
					if color == "" {
						color = it.DisplayColor()
					}
				}
			}
			if len(names) == 0 {
				continue
			}

			style, ok := fills[color]
			if !ok {
				style, err = f.NewStyle(&excelize.Style{
					Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
					Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
				})
				if err != nil {
					return fmt.Errorf("failed to create style: %w", err)
				}
				fills[color] = style
			}
			if err := setCell(f, sheet, c+2, r+2, strings.Join(names, "\n"), style); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(grid.Columns() + 1)
	if err != nil {
		return fmt.Errorf("failed to name column: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", last, 14); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	return nil
}

func writeMaterials(f *excelize.File, grid *canvas.Grid, items []*domain.Item) error {
	for i, h := range materialsHeader {
		if err := setCell(f, materialsSheet, i+1, 1, h, 0); err != nil {
			return err
		}
	}

	row := 2
	for _, it := range items {
		if it.Position.AreaID != grid.ID() {
			continue
		}
		values := []any{
			canvas.Cell{Row: it.Position.Row, Col: it.Position.Col}.Label(),
			it.Name, it.Category, it.Quantity, string(it.Status), it.Barcode, it.ID,
		}
		for i, v := range values {
			if err := setCell(f, materialsSheet, i+1, row, v, 0); err != nil {
				return err
			}
		}
		row++
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to name cell: %w", err)
	}
	if err := f.SetCellValue(sheet, ref, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", ref, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(sheet, ref, ref, style); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", ref, err)
		}
	}
	return nil
}

// SheetName turns an area name into a valid worksheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" || strings.EqualFold(name, materialsSheet) {
		name = "Layout"
	}
	return name
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

type AreaStore struct {
	db *sql.DB
}

func NewAreaStore(db *sql.DB) *AreaStore {
	return &AreaStore{db: db}
}

const areaColumns = `id, name, row_count, column_count, cell_width, cell_height, origin_x, origin_y, color, created_at`

func scanArea(row interface{ Scan(...any) error }) (*domain.Area, error) {
	area := &domain.Area{}
	err := row.Scan(&area.ID, &area.Name, &area.Rows, &area.Columns, &area.CellWidth, &area.CellHeight,
		&area.OriginX, &area.OriginY, &area.Color, &area.CreatedAt)
	return area, err
}

func (s *AreaStore) Create(ctx context.Context, area *domain.Area) (*domain.Area, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO areas (id, name, row_count, column_count, cell_width, cell_height, origin_x, origin_y, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, area.ID, area.Name, area.Rows, area.Columns, area.CellWidth, area.CellHeight, area.OriginX, area.OriginY, area.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to create area: %w", err)
	}

	return s.GetByID(ctx, area.ID)
}

func (s *AreaStore) GetByID(ctx context.Context, id string) (*domain.Area, error) {
	area, err := scanArea(s.db.QueryRowContext(ctx, `
		SELECT `+areaColumns+` FROM areas WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get area: %w", err)
	}

	return area, nil
}

// List returns areas in creation order.
func (s *AreaStore) List(ctx context.Context) ([]*domain.Area, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+areaColumns+` FROM areas ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	var areas []*domain.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, area)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}

	return areas, nil
}

// Rename changes an area's display name and colour. Geometry is immutable.
func (s *AreaStore) Rename(ctx context.Context, id, name, color string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE areas SET name = ?, color = ? WHERE id = ?
	`, name, color, id)
	if err != nil {
		return fmt.Errorf("failed to update area: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("area %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, name, category, quantity, status, barcode, area_id, grid_row, grid_col,
	width, height, color, properties, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	item := &domain.Item{}
	var (
		width, height sql.NullFloat64
		props         string
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Quantity, &item.Status, &item.Barcode,
		&item.Position.AreaID, &item.Position.Row, &item.Position.Col,
		&width, &height, &item.Color, &props, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if width.Valid && height.Valid {
		item.Size = &domain.Size{Width: width.Float64, Height: height.Float64}
	}
	if props != "" && props != "{}" {
		if err := json.Unmarshal([]byte(props), &item.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of item %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func encodeProperties(p map[string]string) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(b), nil
}

func sizeArgs(s *domain.Size) (any, any) {
	if s == nil {
		return nil, nil
	}
	return s.Width, s.Height
}

// Create inserts item, minting an id when it has none.
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	props, err := encodeProperties(item.Properties)
	if err != nil {
		return nil, err
	}
	w, h := sizeArgs(item.Size)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, category, quantity, status, barcode, area_id, grid_row, grid_col,
			width, height, color, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, item.Name, item.Category, item.Quantity, item.Status, item.Barcode,
		item.Position.AreaID, item.Position.Row, item.Position.Col, w, h, item.Color, props)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListItems returns every item in insertion order.
func (s *ItemStore) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY rowid ASC`)
}

func (s *ItemStore) ListByAreaID(ctx context.Context, areaID string) ([]*domain.Item, error) {
	return s.query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE area_id = ? ORDER BY grid_row ASC, grid_col ASC, name ASC
	`, areaID)
}

var sortClauses = map[string]string{
	"":         "name COLLATE NOCASE ASC",
	"name":     "name COLLATE NOCASE ASC",
	"category": "category COLLATE NOCASE ASC, name COLLATE NOCASE ASC",
	"quantity": "quantity DESC, name COLLATE NOCASE ASC",
	"status":   "status ASC, name COLLATE NOCASE ASC",
}

func (s *ItemStore) Search(ctx context.Context, f domain.ItemFilter) ([]*domain.Item, error) {
	order, ok := sortClauses[f.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown sort %q", f.Sort)
	}

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		// Case-insensitive search with wildcards
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR LOWER(barcode) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.AreaID != "" {
		where = append(where, "area_id = ?")
		args = append(args, f.AreaID)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order

	items, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

// Categories returns the distinct item categories in alphabetical order.
func (s *ItemStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM items WHERE category <> '' ORDER BY category COLLATE NOCASE ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return out, nil
}

// CountByStatus returns how many items carry each status.
func (s *ItemStore) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	counts := map[domain.Status]int{
		domain.StatusAvailable: 0,
		domain.StatusReserved:  0,
		domain.StatusInUse:     0,
	}
	for rows.Next() {
		var (
			st domain.Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}

// ReplaceItem overwrites every mutable column of item id with item's values
// in a single statement.
func (s *ItemStore) ReplaceItem(ctx context.Context, id string, item *domain.Item) error {
	props, err := encodeProperties(item.Properties)
	if err != nil {
		return err
	}
	w, h := sizeArgs(item.Size)

	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET name = ?, category = ?, quantity = ?, status = ?, barcode = ?,
			area_id = ?, grid_row = ?, grid_col = ?, width = ?, height = ?, color = ?, properties = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`, item.Name, item.Category, item.Quantity, item.Status, item.Barcode,
		item.Position.AreaID, item.Position.Row, item.Position.Col, w, h, item.Color, props, id)
	if err != nil {
		return fmt.Errorf("failed to replace item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (s *ItemStore) query(ctx context.Context, query string, args ...any) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

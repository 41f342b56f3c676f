package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/grocer/internal/model"
)

const mappingColumns = `id, search_term, product_id, product_name, price, unit_price,
	size, in_stock, is_pinned, times_selected, last_used, created_at`

// GetMapping returns the preferred mapping for a search term: pinned rows
// first, then the most recently used. It returns nil when the term has
// never been cached.
func (s *SQLiteStorage) GetMapping(ctx context.Context, searchTerm string) (*model.CachedMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(searchTerm, "searchTerm"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+`
		FROM product_mappings
		WHERE search_term = ?
		ORDER BY is_pinned DESC, last_used DESC, times_selected DESC, id ASC
		LIMIT 1
	`, strings.TrimSpace(searchTerm))

	mapping, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return mapping, nil
}

// SaveMapping caches product as the result for searchTerm, used at at. An
// existing row for the same product has its selection count bumped and its
// product details refreshed.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, searchTerm string, product model.CatalogProduct, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(searchTerm, "searchTerm"); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}

	return s.upsertMapping(ctx, s.db, strings.TrimSpace(searchTerm), product, false, at)
}

func (s *SQLiteStorage) upsertMapping(ctx context.Context, q queryable, searchTerm string, product model.CatalogProduct, pinned bool, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO product_mappings
			(search_term, product_id, product_name, price, unit_price, size,
			 in_stock, is_pinned, times_selected, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(search_term, product_id) DO UPDATE SET
			product_name = excluded.product_name,
			price = excluded.price,
			unit_price = excluded.unit_price,
			size = excluded.size,
			in_stock = excluded.in_stock,
			is_pinned = CASE WHEN excluded.is_pinned THEN 1 ELSE product_mappings.is_pinned END,
			times_selected = CASE WHEN excluded.is_pinned
				THEN product_mappings.times_selected
				ELSE product_mappings.times_selected + 1 END,
			last_used = excluded.last_used
	`, searchTerm, product.ID, product.Name, product.Price, nullFloat(product.UnitPrice),
		product.Size, product.InStock, pinned, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// TouchMapping records another use of a mapping.
func (s *SQLiteStorage) TouchMapping(ctx context.Context, id int64, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE product_mappings
		SET times_selected = times_selected + 1, last_used = ?
		WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mapping %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// PinMapping makes product the only pinned mapping for searchTerm.
func (s *SQLiteStorage) PinMapping(ctx context.Context, searchTerm string, product model.CatalogProduct, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(searchTerm, "searchTerm"); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}
	term := strings.TrimSpace(searchTerm)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_mappings SET is_pinned = 0 WHERE search_term = ?`, term); err != nil {
			return fmt.Errorf("failed to clear pins: %w", err)
		}
		return s.upsertMapping(ctx, tx, term, product, true, at)
	})
}

// UnpinMapping clears the pin for searchTerm and reports whether one existed.
func (s *SQLiteStorage) UnpinMapping(ctx context.Context, searchTerm string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(searchTerm, "searchTerm"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE product_mappings SET is_pinned = 0
		WHERE search_term = ? AND is_pinned = 1
	`, strings.TrimSpace(searchTerm))
	if err != nil {
		return false, fmt.Errorf("failed to unpin mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteMappings removes every cached mapping for searchTerm.
func (s *SQLiteStorage) DeleteMappings(ctx context.Context, searchTerm string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(searchTerm, "searchTerm"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM product_mappings WHERE search_term = ?`, strings.TrimSpace(searchTerm))
	if err != nil {
		return 0, fmt.Errorf("failed to delete mappings: %w", err)
	}
	return result.RowsAffected()
}

// ListMappings returns every cached mapping.
func (s *SQLiteStorage) ListMappings(ctx context.Context) ([]model.CachedMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mappingColumns+`
		FROM product_mappings
		ORDER BY search_term, is_pinned DESC, times_selected DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.CachedMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}
	return mappings, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (*model.CachedMapping, error) {
	var (
		m         model.CachedMapping
		unitPrice sql.NullFloat64
		createdAt sql.NullTime
	)
	err := row.Scan(
		&m.ID,
		&m.SearchTerm,
		&m.Product.ID,
		&m.Product.Name,
		&m.Product.Price,
		&unitPrice,
		&m.Product.Size,
		&m.Product.InStock,
		&m.IsPinned,
		&m.TimesSelected,
		&m.LastUsed,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if unitPrice.Valid {
		v := unitPrice.Float64
		m.Product.UnitPrice = &v
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	return &m, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

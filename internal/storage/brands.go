package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
)

// AddBrandPreference stores a brand rule and returns its ID. Match targets
// are stored lower-cased.
func (s *SQLiteStorage) AddBrandPreference(ctx context.Context, pref model.BrandPreference) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateBrandPreference(pref); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO brand_preferences (match_target, match_type, brand, preference_type, notes)
		VALUES (?, ?, ?, ?, ?)
	`, normalizeTarget(pref.MatchTarget), pref.MatchType, pref.Brand, pref.PreferenceType,
		sql.NullString{String: pref.Notes, Valid: pref.Notes != ""})
	if err != nil {
		return 0, fmt.Errorf("failed to add brand preference: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get brand preference ID: %w", err)
	}
	return id, nil
}

// RemoveBrandPreference deletes a brand rule by ID.
func (s *SQLiteStorage) RemoveBrandPreference(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM brand_preferences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove brand preference: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("brand preference %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// ListBrandPreferences returns every brand rule ordered by target.
func (s *SQLiteStorage) ListBrandPreferences(ctx context.Context) ([]model.BrandPreference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryBrandPreferences(ctx, `
		SELECT id, match_target, match_type, brand, preference_type, notes, created_at
		FROM brand_preferences
		ORDER BY match_target, id
	`)
}

// GetBrandsForIngredient returns the rules for ingredient, or the rules for
// its category when the ingredient has none of its own.
func (s *SQLiteStorage) GetBrandsForIngredient(ctx context.Context, ingredient string, category model.IngredientCategory) (model.BrandSet, error) {
	if err := validateContext(ctx); err != nil {
		return model.BrandSet{}, err
	}

	const query = `
		SELECT id, match_target, match_type, brand, preference_type, notes, created_at
		FROM brand_preferences
		WHERE match_type = ? AND match_target = ?
		ORDER BY id
	`

	prefs, err := s.queryBrandPreferences(ctx, query, model.MatchIngredient, normalizeTarget(ingredient))
	if err != nil {
		return model.BrandSet{}, err
	}
	if len(prefs) == 0 && category != "" {
		prefs, err = s.queryBrandPreferences(ctx, query, model.MatchCategory, normalizeTarget(string(category)))
		if err != nil {
			return model.BrandSet{}, err
		}
	}

	var set model.BrandSet
	for _, p := range prefs {
		if p.PreferenceType == model.PreferenceAvoid {
			set.Avoid = append(set.Avoid, p)
		} else {
			set.Preferred = append(set.Preferred, p)
		}
	}
	return set, nil
}

func (s *SQLiteStorage) queryBrandPreferences(ctx context.Context, query string, args ...any) ([]model.BrandPreference, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query brand preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prefs []model.BrandPreference
	for rows.Next() {
		var (
			p         model.BrandPreference
			notes     sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.MatchTarget, &p.MatchType, &p.Brand, &p.PreferenceType, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan brand preference: %w", err)
		}
		p.Notes = notes.String
		p.CreatedAt = createdAt.Time
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

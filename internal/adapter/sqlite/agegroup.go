package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Compile-time check: AgeGroupRepository implements domain.AgeGroupRepository.
var _ domain.AgeGroupRepository = (*AgeGroupRepository)(nil)

// AgeGroupRepository implements domain.AgeGroupRepository using SQLite.
type AgeGroupRepository struct {
	db *sql.DB
}

const selectAgeGroups = `SELECT id, min_age, max_age, created_at FROM age_groups`

func (r *AgeGroupRepository) Create(ctx context.Context, g domain.AgeGroup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO age_groups (id, min_age, max_age, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.MinAge, g.MaxAge, formatTime(g.CreatedAt),
	)
	if err != nil {
		return &domain.StoreError{Op: "insert age group", Err: err}
	}
	return nil
}

func (r *AgeGroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM age_groups WHERE id = ?`, id)
	if err != nil {
		return &domain.StoreError{Op: "delete age group", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAgeGroupNotFound
	}
	return nil
}

func (r *AgeGroupRepository) List(ctx context.Context) ([]domain.AgeGroup, error) {
	return r.query(ctx, "list age groups", selectAgeGroups+` ORDER BY created_at, rowid`)
}

// FindOverlapping returns groups whose closed range intersects [minAge, maxAge].
func (r *AgeGroupRepository) FindOverlapping(ctx context.Context, minAge, maxAge int) ([]domain.AgeGroup, error) {
	return r.query(ctx, "find overlapping age groups",
		selectAgeGroups+` WHERE min_age <= ? AND max_age >= ? ORDER BY created_at, rowid`,
		maxAge, minAge,
	)
}

// FindContaining returns groups whose closed range contains age, in insertion order.
func (r *AgeGroupRepository) FindContaining(ctx context.Context, age int) ([]domain.AgeGroup, error) {
	return r.query(ctx, "find age groups for age",
		selectAgeGroups+` WHERE min_age <= ? AND max_age >= ? ORDER BY created_at, rowid`,
		age, age,
	)
}

func (r *AgeGroupRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.AgeGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	groups := []domain.AgeGroup{}
	for rows.Next() {
		var g domain.AgeGroup
		var createdAt string
		if err := rows.Scan(&g.ID, &g.MinAge, &g.MaxAge, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning age group row: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	return groups, nil
}

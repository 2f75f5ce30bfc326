package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Compile-time check: EnrollmentRepository implements domain.EnrollmentRepository.
var _ domain.EnrollmentRepository = (*EnrollmentRepository)(nil)

// EnrollmentRepository implements domain.EnrollmentRepository using SQLite.
type EnrollmentRepository struct {
	db *sql.DB
}

const selectEnrollments = `SELECT id, name, cpf, age, status, age_group_id, created_at, updated_at FROM enrollments`

// upsertEnrollment keeps created_at from the first write and never touches an
// approved row. Unchanged rows are skipped so replays leave updated_at alone.
const upsertEnrollment = `
INSERT INTO enrollments (id, name, cpf, age, status, age_group_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    cpf = excluded.cpf,
    age = excluded.age,
    status = excluded.status,
    age_group_id = excluded.age_group_id,
    updated_at = excluded.updated_at
WHERE enrollments.status <> 'approved'
  AND (enrollments.status <> excluded.status
    OR enrollments.age_group_id <> excluded.age_group_id
    OR enrollments.name <> excluded.name
    OR enrollments.cpf <> excluded.cpf
    OR enrollments.age <> excluded.age)`

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (domain.Enrollment, error) {
	return r.scanEnrollment(r.db.QueryRowContext(ctx, selectEnrollments+` WHERE id = ?`, id))
}

// GetByCPF returns the most recently created enrollment for a normalized cpf.
func (r *EnrollmentRepository) GetByCPF(ctx context.Context, cpf string) (domain.Enrollment, error) {
	return r.scanEnrollment(r.db.QueryRowContext(ctx,
		selectEnrollments+` WHERE cpf = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		domain.NormalizeCPF(cpf),
	))
}

// UpsertBatch writes every item in one transaction. Either all rows land or none do.
func (r *EnrollmentRepository) UpsertBatch(ctx context.Context, items []domain.Enrollment) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "begin batch", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertEnrollment)
	if err != nil {
		return &domain.StoreError{Op: "prepare upsert", Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range items {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Name, domain.NormalizeCPF(e.CPF), e.Age, string(e.Status), e.AgeGroupID,
			formatTime(createdAt), formatTime(now),
		); err != nil {
			return &domain.StoreError{Op: "upsert enrollment " + e.ID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "commit batch", Err: err}
	}
	return nil
}

func (r *EnrollmentRepository) scanEnrollment(row *sql.Row) (domain.Enrollment, error) {
	var e domain.Enrollment
	var status, createdAt, updatedAt string

	err := row.Scan(&e.ID, &e.Name, &e.CPF, &e.Age, &status, &e.AgeGroupID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Enrollment{}, domain.ErrEnrollmentNotFound
		}
		return domain.Enrollment{}, fmt.Errorf("scanning enrollment: %w", err)
	}

	e.Status = domain.Status(status)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

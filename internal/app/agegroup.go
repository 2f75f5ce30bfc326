package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// AgeGroupResolver finds the age group covering an age. A lookup failure is
// reported as an error, never as a missing match.
type AgeGroupResolver interface {
	FindGroupForAge(ctx context.Context, age int) (domain.AgeGroup, bool, error)
}

// Compile-time check: AgeGroupService implements AgeGroupResolver.
var _ AgeGroupResolver = (*AgeGroupService)(nil)

// AgeGroupService manages age group ranges and resolves ages against them.
type AgeGroupService struct {
	repo domain.AgeGroupRepository
}

// NewAgeGroupService creates a service backed by the given repository.
func NewAgeGroupService(repo domain.AgeGroupRepository) *AgeGroupService {
	return &AgeGroupService{repo: repo}
}

// Create validates the range, rejects it if it intersects an existing group,
// and persists it under a generated id.
func (s *AgeGroupService) Create(ctx context.Context, minAge, maxAge int) (domain.AgeGroup, error) {
	group, err := domain.NewAgeGroup(newID(), minAge, maxAge)
	if err != nil {
		return domain.AgeGroup{}, err
	}

	overlap, err := s.HasOverlap(ctx, minAge, maxAge)
	if err != nil {
		return domain.AgeGroup{}, err
	}
	if overlap {
		slog.WarnContext(ctx, "age group conflict detected", "min_age", minAge, "max_age", maxAge)
		return domain.AgeGroup{}, &domain.AgeGroupConflictError{MinAge: minAge, MaxAge: maxAge}
	}

	if err := s.repo.Create(ctx, group); err != nil {
		return domain.AgeGroup{}, fmt.Errorf("creating age group: %w", err)
	}

	slog.InfoContext(ctx, "age group created", "age_group_id", group.ID, "min_age", minAge, "max_age", maxAge)
	return group, nil
}

// Delete removes an age group. Returns domain.ErrAgeGroupNotFound if it does not exist.
func (s *AgeGroupService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// List returns every age group in insertion order.
func (s *AgeGroupService) List(ctx context.Context) ([]domain.AgeGroup, error) {
	return s.repo.List(ctx)
}

// HasOverlap reports whether any existing group intersects [minAge, maxAge].
func (s *AgeGroupService) HasOverlap(ctx context.Context, minAge, maxAge int) (bool, error) {
	groups, err := s.repo.FindOverlapping(ctx, minAge, maxAge)
	if err != nil {
		return false, fmt.Errorf("checking age group conflict: %w", err)
	}
	return len(groups) > 0, nil
}

// FindGroupForAge returns the first group, in scan order, whose range contains age.
func (s *AgeGroupService) FindGroupForAge(ctx context.Context, age int) (domain.AgeGroup, bool, error) {
	groups, err := s.repo.FindContaining(ctx, age)
	if err != nil {
		return domain.AgeGroup{}, false, fmt.Errorf("resolving age group for age %d: %w", age, err)
	}
	if len(groups) == 0 {
		return domain.AgeGroup{}, false, nil
	}
	return groups[0], true, nil
}

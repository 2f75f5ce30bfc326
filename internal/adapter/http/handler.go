package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Config wires the API operations to the application services.
type Config struct {
	AgeGroups   *app.AgeGroupService
	Enrollments *app.EnrollmentService
	// Credentials guard the age group configuration API.
	Credentials Credentials
	// Limiter throttles the public enrollment API per client. Nil disables it.
	Limiter *RateLimiter
}

// Register adds the age group and enrollment routes to the Huma API.
func Register(api huma.API, cfg Config) {
	registerAgeGroups(api, cfg.AgeGroups, huma.Middlewares{BasicAuth(api, cfg.Credentials)})

	var public huma.Middlewares
	if cfg.Limiter != nil {
		public = append(public, cfg.Limiter.Middleware(api))
	}
	registerEnrollments(api, cfg.Enrollments, public)
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrEnrollmentNotFound) {
		return huma.Error404NotFound("enrollment not found")
	}
	if errors.Is(err, domain.ErrAgeGroupNotFound) {
		return huma.Error404NotFound("age group not found")
	}

	var conflict *domain.AgeGroupConflictError
	if errors.As(err, &conflict) {
		return huma.Error409Conflict("age group conflicts with an existing one")
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return huma.Error422UnprocessableEntity(vErr.Error())
	}

	var qErr *domain.QueueError
	if errors.As(err, &qErr) {
		return huma.Error500InternalServerError("failed to create enrollment")
	}

	return huma.Error500InternalServerError("internal server error")
}

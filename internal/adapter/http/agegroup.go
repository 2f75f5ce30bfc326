package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// AgeGroupResponse is the API representation of an age group.
type AgeGroupResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	MinAge    int    `json:"min_age" doc:"Lowest age in the group, inclusive"`
	MaxAge    int    `json:"max_age" doc:"Highest age in the group, inclusive"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
}

func toAgeGroupResponse(g domain.AgeGroup) AgeGroupResponse {
	return AgeGroupResponse{
		ID:        g.ID,
		MinAge:    g.MinAge,
		MaxAge:    g.MaxAge,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
	}
}

// --- Create Age Group ---

type CreateAgeGroupBody struct {
	MinAge int `json:"min_age" minimum:"0" exclusiveMaximum:"110" doc:"Lowest age in the group"`
	MaxAge int `json:"max_age" exclusiveMinimum:"0" maximum:"110" doc:"Highest age in the group"`
}

type CreateAgeGroupInput struct {
	Body CreateAgeGroupBody
}

// Resolve rejects ranges whose lower bound is not below the upper bound.
func (i *CreateAgeGroupInput) Resolve(_ huma.Context) []error {
	if i.Body.MinAge >= i.Body.MaxAge {
		return []error{&huma.ErrorDetail{
			Location: "body.min_age",
			Message:  "min_age must be less than max_age",
			Value:    i.Body.MinAge,
		}}
	}
	return nil
}

type CreateAgeGroupOutput struct {
	Body AgeGroupResponse
}

// --- Delete Age Group ---

type DeleteAgeGroupInput struct {
	ID string `path:"id" doc:"Age group ID"`
}

// --- List Age Groups ---

type ListAgeGroupsOutput struct {
	Body []AgeGroupResponse
}

func registerAgeGroups(api huma.API, svc *app.AgeGroupService, mw huma.Middlewares) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-age-group",
		Method:        http.MethodPost,
		Path:          "/api/v1/age-groups",
		Summary:       "Create an age group",
		Tags:          []string{"Age Groups"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   mw,
	}, func(ctx context.Context, input *CreateAgeGroupInput) (*CreateAgeGroupOutput, error) {
		group, err := svc.Create(ctx, input.Body.MinAge, input.Body.MaxAge)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateAgeGroupOutput{Body: toAgeGroupResponse(group)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-age-group",
		Method:        http.MethodDelete,
		Path:          "/api/v1/age-groups/{id}",
		Summary:       "Delete an age group",
		Tags:          []string{"Age Groups"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   mw,
	}, func(ctx context.Context, input *DeleteAgeGroupInput) (*struct{}, error) {
		if err := svc.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-age-groups",
		Method:      http.MethodGet,
		Path:        "/api/v1/age-groups",
		Summary:     "List age groups",
		Tags:        []string{"Age Groups"},
		Middlewares: mw,
	}, func(ctx context.Context, _ *struct{}) (*ListAgeGroupsOutput, error) {
		groups, err := svc.List(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]AgeGroupResponse, len(groups))
		for i, g := range groups {
			resp[i] = toAgeGroupResponse(g)
		}
		return &ListAgeGroupsOutput{Body: resp}, nil
	})
}

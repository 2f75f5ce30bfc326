package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// EnrollmentResponse is the API representation of an enrollment.
type EnrollmentResponse struct {
	ID         string `json:"id" doc:"Unique identifier"`
	Name       string `json:"name" doc:"Applicant name"`
	CPF        string `json:"cpf" doc:"Applicant CPF, digits only"`
	Age        int    `json:"age" doc:"Applicant age at first submission"`
	Status     string `json:"status" doc:"pending, approved or rejected"`
	AgeGroupID string `json:"age_group_id" doc:"Matched age group, empty when rejected"`
	CreatedAt  string `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt  string `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toEnrollmentResponse(e domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:         e.ID,
		Name:       e.Name,
		CPF:        e.CPF,
		Age:        e.Age,
		Status:     string(e.Status),
		AgeGroupID: e.AgeGroupID,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}

// --- Admit Enrollment ---

type AdmitEnrollmentInput struct {
	Body struct {
		Name string `json:"name" minLength:"3" maxLength:"35" doc:"Applicant name"`
		CPF  string `json:"cpf" pattern:"^\\d{3}\\.\\d{3}\\.\\d{3}-\\d{2}$" doc:"Applicant CPF (000.000.000-00)"`
		Age  int    `json:"age" minimum:"0" doc:"Applicant age"`
	}
}

// AdmissionBody carries the outcome message. Data is only set while the
// enrollment is pending.
type AdmissionBody struct {
	Message string              `json:"message"`
	Data    *EnrollmentResponse `json:"data,omitempty"`
}

type AdmitEnrollmentOutput struct {
	Status int
	Body   AdmissionBody
}

// --- Get Enrollment ---

type GetEnrollmentInput struct {
	ID string `path:"id" doc:"Enrollment ID"`
}

type GetEnrollmentOutput struct {
	Body EnrollmentResponse
}

func registerEnrollments(api huma.API, svc *app.EnrollmentService, mw huma.Middlewares) {
	huma.Register(api, huma.Operation{
		OperationID: "admit-enrollment",
		Method:      http.MethodPost,
		Path:        "/api/v1/enrollments",
		Summary:     "Submit an enrollment",
		Tags:        []string{"Enrollments"},
		Middlewares: mw,
		Responses: map[string]*huma.Response{
			"200": {Description: "Enrollment already approved"},
			"201": {Description: "Enrollment pending finalization"},
			"422": {Description: "No age group covers the applicant"},
		},
	}, func(ctx context.Context, input *AdmitEnrollmentInput) (*AdmitEnrollmentOutput, error) {
		admission, err := svc.Admit(ctx, input.Body.Name, input.Body.CPF, input.Body.Age)
		if err != nil {
			return nil, toHumaError(err)
		}
		return toAdmissionOutput(admission), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-enrollment",
		Method:      http.MethodGet,
		Path:        "/api/v1/enrollments/{id}",
		Summary:     "Get an enrollment by ID",
		Tags:        []string{"Enrollments"},
		Middlewares: mw,
	}, func(ctx context.Context, input *GetEnrollmentInput) (*GetEnrollmentOutput, error) {
		enrollment, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetEnrollmentOutput{Body: toEnrollmentResponse(enrollment)}, nil
	})
}

func toAdmissionOutput(a domain.Admission) *AdmitEnrollmentOutput {
	switch a.Enrollment.Status {
	case domain.StatusApproved:
		return &AdmitEnrollmentOutput{
			Status: http.StatusOK,
			Body:   AdmissionBody{Message: "enrollment already approved"},
		}
	case domain.StatusRejected:
		return &AdmitEnrollmentOutput{
			Status: http.StatusUnprocessableEntity,
			Body:   AdmissionBody{Message: "enrollment rejected, age group not found"},
		}
	}

	data := toEnrollmentResponse(a.Enrollment)
	return &AdmitEnrollmentOutput{
		Status: http.StatusCreated,
		Body:   AdmissionBody{Message: "enrollment pending", Data: &data},
	}
}

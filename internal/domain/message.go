package domain

import (
	"encoding/json"
	"fmt"
)

// QueueMessage is one delivery taken from the queue. Handle identifies the
// delivery for acknowledgement; Body is the encoded EnrollmentMessage.
type QueueMessage struct {
	ID     string
	Handle string
	Body   []byte
}

// EnrollmentMessage is the wire format carried on the queue.
type EnrollmentMessage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CPF        string `json:"cpf"`
	Age        int    `json:"age"`
	Status     string `json:"status"`
	AgeGroupID string `json:"age_group_id"`
}

// NewEnrollmentMessage builds the wire representation of an enrollment.
func NewEnrollmentMessage(e Enrollment) EnrollmentMessage {
	return EnrollmentMessage{
		ID:         e.ID,
		Name:       e.Name,
		CPF:        e.CPF,
		Age:        e.Age,
		Status:     string(e.Status),
		AgeGroupID: e.AgeGroupID,
	}
}

// EncodeEnrollmentMessage serializes an enrollment into a message body.
func EncodeEnrollmentMessage(e Enrollment) ([]byte, error) {
	return json.Marshal(NewEnrollmentMessage(e))
}

// rawEnrollmentMessage distinguishes absent keys from zero values.
type rawEnrollmentMessage struct {
	ID         *string `json:"id"`
	Name       *string `json:"name"`
	CPF        *string `json:"cpf"`
	Age        *int    `json:"age"`
	Status     *string `json:"status"`
	AgeGroupID *string `json:"age_group_id"`
}

// DecodeEnrollmentMessage parses a message body. Every key is required;
// age_group_id may be empty.
func DecodeEnrollmentMessage(body []byte) (Enrollment, error) {
	var raw rawEnrollmentMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Enrollment{}, &ValidationError{Field: "body", Reason: fmt.Sprintf("decoding JSON: %v", err)}
	}

	missing := ""
	switch {
	case raw.ID == nil:
		missing = "id"
	case raw.Name == nil:
		missing = "name"
	case raw.CPF == nil:
		missing = "cpf"
	case raw.Age == nil:
		missing = "age"
	case raw.Status == nil:
		missing = "status"
	case raw.AgeGroupID == nil:
		missing = "age_group_id"
	}
	if missing != "" {
		return Enrollment{}, &ValidationError{Field: missing, Reason: "missing from message"}
	}

	status := Status(*raw.Status)
	if !status.Valid() {
		return Enrollment{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *raw.Status)}
	}
	if *raw.ID == "" {
		return Enrollment{}, &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	return Enrollment{
		ID:         *raw.ID,
		Name:       *raw.Name,
		CPF:        NormalizeCPF(*raw.CPF),
		Age:        *raw.Age,
		Status:     status,
		AgeGroupID: *raw.AgeGroupID,
	}, nil
}

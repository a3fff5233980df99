package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by storage when a certificate number is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNetwork marks transport failures between a client and the API.
	ErrNetwork = errors.New("network failure")
)

// DuplicatePhrase appears in the message of a duplicate-certificate response.
const DuplicatePhrase = "이미 등록된"

// ErrorResponse is the JSON body of every non-success API response.
type ErrorResponse struct {
	Status                int                 `json:"status,omitempty"`
	Message               string              `json:"message,omitempty"`
	Err                   string              `json:"error,omitempty"`
	Errors                map[string][]string `json:"errors,omitempty"`
	RequiresFoodSelection bool                `json:"requiresFoodSelection,omitempty"`
	ParsedFood            string              `json:"parsedFood,omitempty"`
	SimilarFoods          []string            `json:"similarFoods,omitempty"`
}

func (e *ErrorResponse) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != "":
		return e.Err
	case e.RequiresFoodSelection:
		return fmt.Sprintf("food %q requires selection", e.ParsedFood)
	}
	for field, msgs := range e.Errors {
		if len(msgs) > 0 {
			return field + ": " + msgs[0]
		}
	}
	return fmt.Sprintf("status %d", e.Status)
}

func DuplicateCertificate(number string) *ErrorResponse {
	return &ErrorResponse{Status: 409, Message: fmt.Sprintf("%s 성적서 번호입니다: %s", DuplicatePhrase, number)}
}

func FoodSelectionRequired(parsed string, similar []string) *ErrorResponse {
	if similar == nil {
		similar = []string{}
	}
	return &ErrorResponse{
		Status:                400,
		Message:               "식품명을 확인할 수 없습니다. 유사한 식품을 선택해 주세요.",
		RequiresFoodSelection: true,
		ParsedFood:            parsed,
		SimilarFoods:          similar,
	}
}

func FieldError(status int, field, msg string) *ErrorResponse {
	return &ErrorResponse{Status: status, Errors: map[string][]string{field: {msg}}}
}

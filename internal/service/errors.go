package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/response"
)

// GuardViolation is an expected, user-facing refusal of an operation.
// Two violations match under errors.Is when their codes are equal, so the
// sentinels below can be compared against violations carrying details.
type GuardViolation struct {
	Code      response.ErrCode
	Count     int
	Available int
	Requested int
	Detail    string
}

// Guard sentinels.
var (
	ErrExamFinalized         = &GuardViolation{Code: response.ErrExamFinalized}
	ErrAttemptsInProgress    = &GuardViolation{Code: response.ErrAttemptsInProgress}
	ErrIncompleteWizard      = &GuardViolation{Code: response.ErrIncompleteWizard}
	ErrDuplicateRule         = &GuardViolation{Code: response.ErrDuplicateRule}
	ErrSubTestMismatch       = &GuardViolation{Code: response.ErrSubTestMismatch}
	ErrNoSubTestConfigured   = &GuardViolation{Code: response.ErrNoSubTestConfigured}
	ErrInsufficientQuestions = &GuardViolation{Code: response.ErrInsufficientQuestions}
	ErrInvalidTransition     = &GuardViolation{Code: response.ErrInvalidTransition}
	ErrDuplicateCode         = &GuardViolation{Code: response.ErrDuplicateCode}
	ErrDuplicateSubTestOrder = &GuardViolation{Code: response.ErrDuplicateSubTestOrder}
	ErrDuplicateTrackName    = &GuardViolation{Code: response.ErrDuplicateTrackName}
)

func (e *GuardViolation) Error() string {
	return string(e.Code) + ": " + e.Message()
}

func (e *GuardViolation) Is(target error) bool {
	t, ok := target.(*GuardViolation)
	return ok && t.Code == e.Code
}

// Message renders the violation for the API consumer.
func (e *GuardViolation) Message() string {
	switch e.Code {
	case response.ErrAttemptsInProgress:
		return fmt.Sprintf("No se puede modificar el examen: hay %d intento(s) en curso.", e.Count)
	case response.ErrInsufficientQuestions:
		return fmt.Sprintf("Preguntas insuficientes: disponibles %d, solicitadas %d.", e.Available, e.Requested)
	}
	msg := response.GetMessage(e.Code)
	if e.Detail != "" {
		msg += " " + e.Detail
	}
	return msg
}

func violation(base *GuardViolation, detail string) *GuardViolation {
	return &GuardViolation{Code: base.Code, Detail: detail}
}

func attemptsInProgress(count int) *GuardViolation {
	return &GuardViolation{Code: response.ErrAttemptsInProgress, Count: count}
}

func insufficientQuestions(available, requested int) *GuardViolation {
	return &GuardViolation{Code: response.ErrInsufficientQuestions, Available: available, Requested: requested}
}

// ValidationError reports malformed input that passed request binding
// but fails a domain check, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

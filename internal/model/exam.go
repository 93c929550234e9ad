package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

// ExamState enumerates the lifecycle states of an exam.
// The wire and storage representation is the string code "0", "1" or "2";
// states are compared by identity, never by their numeric value.
type ExamState uint8

const (
	ExamStateDraft ExamState = iota + 1
	ExamStatePublished
	ExamStateFinalized
)

// Code returns the wire code of the state.
func (s ExamState) Code() string {
	switch s {
	case ExamStateDraft:
		return "0"
	case ExamStatePublished:
		return "1"
	case ExamStateFinalized:
		return "2"
	default:
		return ""
	}
}

// Label returns a human readable name used in messages.
func (s ExamState) Label() string {
	switch s {
	case ExamStateDraft:
		return "Borrador"
	case ExamStatePublished:
		return "Publicado"
	case ExamStateFinalized:
		return "Finalizado"
	default:
		return "Desconocido"
	}
}

func (s ExamState) String() string { return s.Label() }

// ParseExamState maps an exact wire code to a state.
func ParseExamState(code string) (ExamState, error) {
	switch code {
	case "0":
		return ExamStateDraft, nil
	case "1":
		return ExamStatePublished, nil
	case "2":
		return ExamStateFinalized, nil
	}
	return 0, fmt.Errorf("unknown exam state %q", code)
}

func (s ExamState) MarshalJSON() ([]byte, error) {
	if s.Code() == "" {
		return nil, fmt.Errorf("invalid exam state %d", s)
	}
	return json.Marshal(s.Code())
}

func (s *ExamState) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseExamState(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AccessMode decides who is expected to take an exam.
type AccessMode string

const (
	AccessPublic  AccessMode = "publico"
	AccessPrivate AccessMode = "privado"
)

// Exam represents the top-level assessment configured through the wizard.
type Exam struct {
	ID               int64      `json:"id"`
	Code             string     `json:"codigo"`
	TypeID           *int64     `json:"idTipoExamen,omitempty"`
	Title            string     `json:"titulo"`
	Description      string     `json:"descripcion"`
	AccessMode       AccessMode `json:"tipo_acceso"`
	State            ExamState  `json:"estado"`
	ValidFrom        *time.Time `json:"fecha_inicio_vigencia,omitempty"`
	ValidUntil       *time.Time `json:"fecha_fin_vigencia,omitempty"`
	TimeLimitMinutes int        `json:"tiempo_limite"`
	WizardStep       int        `json:"paso_actual"`
	PublishedAt      *time.Time `json:"fecha_publicacion,omitempty"`
	FinalizedAt      *time.Time `json:"fecha_finalizacion,omitempty"`
	CreatedBy        int64      `json:"creado_por"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ExamFilter narrows exam listings.
type ExamFilter struct {
	State  *ExamState
	Search string
	Limit  int
	Offset int
}

// CreateExamRequest is the payload for step 1 of the wizard.
type CreateExamRequest struct {
	Code             string     `json:"codigo" binding:"required,min=2,max=50"`
	TypeID           *int64     `json:"idTipoExamen" binding:"omitempty,min=1"`
	Title            string     `json:"titulo" binding:"required,notblank,min=3,max=255"`
	Description      string     `json:"descripcion" binding:"omitempty,max=5000"`
	AccessMode       AccessMode `json:"tipo_acceso" binding:"omitempty,oneof=publico privado"`
	TimeLimitMinutes int        `json:"tiempo_limite" binding:"required,min=1,max=1440"`
}

// UpdateExamRequest edits step 1 data of a draft exam.
type UpdateExamRequest = CreateExamRequest

// UpdateScheduleRequest is the payload for step 6 of the wizard.
type UpdateScheduleRequest struct {
	ValidFrom  *time.Time `json:"fecha_inicio_vigencia" binding:"required"`
	ValidUntil *time.Time `json:"fecha_fin_vigencia" binding:"required"`
}

// ChangeStateRequest drives publication and manual finalization.
type ChangeStateRequest struct {
	State      string     `json:"estado" binding:"required,oneof=0 1 2"`
	ValidFrom  *time.Time `json:"fecha_inicio_vigencia" binding:"omitempty"`
	ValidUntil *time.Time `json:"fecha_fin_vigencia" binding:"omitempty"`
}

// AssignUsersRequest replaces the participants of a private exam.
type AssignUsersRequest struct {
	UserIDs []int64 `json:"usuarios" binding:"omitempty,dive,min=1"`
}

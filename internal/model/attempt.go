package model

import "time"

// AttemptState enumerates attempt states.
type AttemptState string

const (
	AttemptStarted   AttemptState = "iniciado"
	AttemptSubmitted AttemptState = "enviado"
)

// Attempt is one user's run through an exam. Attempts are created by the
// exam-taking subsystem; this service reads them for guards and closes or
// deletes them when an exam is finalized.
type Attempt struct {
	ID         int64        `json:"id"`
	ExamID     int64        `json:"idExamen"`
	UserID     int64        `json:"idUsuario"`
	State      AttemptState `json:"estado"`
	StartedAt  time.Time    `json:"fecha_inicio"`
	FinishedAt *time.Time   `json:"fecha_fin,omitempty"`
	Score      *float64     `json:"puntaje,omitempty"`
	Passed     *bool        `json:"aprobado,omitempty"`
}

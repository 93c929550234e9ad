package model

// RoleTaker is the role of users expected to take public exams.
const RoleTaker = "postulante"

// AssignedUser grants a user access to a private exam.
type AssignedUser struct {
	ExamID int64 `json:"idExamen"`
	UserID int64 `json:"idUsuario"`
}

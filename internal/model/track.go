package model

// ApprovalMode decides how a track's sub-test results combine into a pass.
type ApprovalMode string

const (
	ApprovalJoint      ApprovalMode = "conjunta"
	ApprovalPerSubTest ApprovalMode = "independiente"
)

// EligibilityTrack ("postulación") is a named category of test-taker eligibility.
type EligibilityTrack struct {
	ID           int64        `json:"id"`
	ExamID       int64        `json:"idExamen"`
	Name         string       `json:"nombre"`
	Description  string       `json:"descripcion"`
	ApprovalMode ApprovalMode `json:"tipo_aprobacion"`
}

// TrackRequest creates or updates an eligibility track.
type TrackRequest struct {
	Name         string       `json:"nombre" binding:"required,min=1,max=255"`
	Description  string       `json:"descripcion" binding:"omitempty,max=2000"`
	ApprovalMode ApprovalMode `json:"tipo_aprobacion" binding:"omitempty,oneof=conjunta independiente"`
}

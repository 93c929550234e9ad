package model

// ScoringRule holds the point values for one (track, sub-test) pair.
// Incorrect and blank answers are always worth zero.
type ScoringRule struct {
	ID              int64   `json:"id"`
	TrackID         int64   `json:"idPostulacion"`
	SubTestID       int64   `json:"idSubprueba"`
	CorrectPoints   float64 `json:"puntaje_correcta"`
	IncorrectPoints float64 `json:"puntaje_incorrecta"`
	BlankPoints     float64 `json:"puntaje_en_blanco"`
	MinPassingScore float64 `json:"puntaje_minimo"`
}

// CreateRuleRequest is the payload for step 4 of the wizard.
type CreateRuleRequest struct {
	TrackID         int64   `json:"idPostulacion" binding:"required,min=1"`
	SubTestID       int64   `json:"idSubprueba" binding:"required,min=1"`
	CorrectPoints   float64 `json:"puntaje_correcta" binding:"min=0"`
	MinPassingScore float64 `json:"puntaje_minimo" binding:"min=0"`
}

// UpdateRuleRequest changes the point values of an existing rule.
type UpdateRuleRequest struct {
	CorrectPoints   float64 `json:"puntaje_correcta" binding:"min=0"`
	MinPassingScore float64 `json:"puntaje_minimo" binding:"min=0"`
}

package model

// SubTest is a scored section of an exam.
type SubTest struct {
	ID                int64   `json:"id"`
	ExamID            int64   `json:"idExamen"`
	Name              string  `json:"nombre"`
	Order             int     `json:"orden"`
	PointsPerQuestion float64 `json:"puntaje_por_pregunta"`
	DurationMinutes   int     `json:"duracion_minutos"`
}

// SubTestRequest creates or updates a sub-test. Order 0 means "append".
type SubTestRequest struct {
	Name              string  `json:"nombre" binding:"required,min=1,max=255"`
	Order             int     `json:"orden" binding:"omitempty,min=1"`
	PointsPerQuestion float64 `json:"puntaje_por_pregunta" binding:"omitempty,min=0"`
	DurationMinutes   int     `json:"duracion_minutos" binding:"omitempty,min=0,max=1440"`
}

package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam lifecycle guards ─────────────────────────────────────────
	ErrExamFinalized         ErrCode = "EXAM_FINALIZED"
	ErrAttemptsInProgress    ErrCode = "ATTEMPTS_IN_PROGRESS"
	ErrIncompleteWizard      ErrCode = "INCOMPLETE_WIZARD"
	ErrInvalidTransition     ErrCode = "INVALID_TRANSITION"
	ErrDuplicateRule         ErrCode = "DUPLICATE_RULE"
	ErrSubTestMismatch       ErrCode = "SUBTEST_MISMATCH"
	ErrNoSubTestConfigured   ErrCode = "NO_SUBTEST_CONFIGURED"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrDuplicateCode         ErrCode = "DUPLICATE_EXAM_CODE"
	ErrDuplicateSubTestOrder ErrCode = "DUPLICATE_SUBTEST_ORDER"
	ErrDuplicateTrackName    ErrCode = "DUPLICATE_TRACK_NAME"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Se requiere un token de autenticación."
	case ErrTokenInvalid:
		return "El token de autenticación no es válido."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permiso denegado."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "La validación falló. Revise los datos enviados."
	case ErrInvalidID:
		return "Formato de ID inválido."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Recurso no encontrado."

	// ─── Exam lifecycle guards ─────────────────────────────────────────
	case ErrExamFinalized:
		return "El examen ya no admite esta modificación."
	case ErrAttemptsInProgress:
		return "No se puede modificar el examen: hay intentos en curso."
	case ErrIncompleteWizard:
		return "El examen no puede publicarse hasta completar todos los pasos."
	case ErrInvalidTransition:
		return "Cambio de estado no permitido."
	case ErrDuplicateRule:
		return "Ya existe una regla para esta postulación y subprueba."
	case ErrSubTestMismatch:
		return "La subprueba no pertenece al mismo examen que la postulación."
	case ErrNoSubTestConfigured:
		return "El examen no tiene subpruebas configuradas."
	case ErrInsufficientQuestions:
		return "No hay suficientes preguntas disponibles."
	case ErrDuplicateCode:
		return "Ya existe un examen con ese código."
	case ErrDuplicateSubTestOrder:
		return "Ya existe una subprueba con ese orden."
	case ErrDuplicateTrackName:
		return "Ya existe una postulación con ese nombre."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Demasiadas solicitudes. Intente nuevamente más tarde."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Ocurrió un error interno del servidor."
	default:
		return "Ocurrió un error inesperado."
	}
}

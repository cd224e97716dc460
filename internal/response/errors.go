package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidID         ErrCode = "INVALID_ID"
	ErrProfileIncomplete ErrCode = "PROFILE_INCOMPLETE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotFound    ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotActive   ErrCode = "EXAM_NOT_ACTIVE"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrSessionLocked   ErrCode = "SESSION_LOCKED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrAdminAccessOnly:
		return "Admin access required."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrProfileIncomplete:
		return "User profile (year, department) not set."

	case ErrNotFound:
		return "Resource not found."

	case ErrExamNotFound:
		return "Exam not found."
	case ErrExamNotActive:
		return "Exam not active."
	case ErrSessionNotFound:
		return "No session exists for this exam."
	case ErrSessionLocked:
		return "Session is awaiting review and cannot be submitted."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrStoreUnavailable:
		return "Storage is temporarily unavailable. Please retry."
	case ErrInternal:
		return "Internal server error."
	default:
		return "Unexpected error."
	}
}

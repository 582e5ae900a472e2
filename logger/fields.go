package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldSessionID = "session_id"
	FieldPersonKey = "person_key"
	FieldPhase     = "phase"
)

package logger

// Field keys shared by every component so entries can be filtered across
// orchestrator, provider and HTTP logs.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldRequestType = "request_type"
	FieldProvider    = "provider"
	FieldFrom        = "from"
	FieldTo          = "to"
	FieldAttempt     = "attempt"
	FieldCode        = "code"
	FieldOperation   = "operation"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldEvent       = "event"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	logger.Info("done", logger.Fields("provider", "offline", "attempt", 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// MergeWithError sets the error field on fields, allocating when nil.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{}, 1)
	}
	fields[FieldError] = err.Error()
	return fields
}

package logger

// Standard field keys.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldError     = "error"
	FieldReason    = "reason"
	FieldSigner    = "signer"
	FieldTokenID   = "jti"
	FieldSubject   = "sub"
	FieldOutcome   = "outcome"
	FieldPath      = "path"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("token issued", logger.Fields(logger.FieldTokenID, id, logger.FieldSigner, "HS256"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields describing a failed operation.
func ErrorFields(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{FieldError: err.Error()}
}

package logger

import (
	"time"
)

// Field keys shared by the HTTP components.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldBackend   = "backend"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldCookie    = "cookie"
	FieldDomain    = "domain"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Debug("exchange done", logger.Fields(logger.FieldStatus, 200))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ExchangeFields creates fields describing one request/response exchange.
func ExchangeFields(method, url string, status int, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod:   method,
		FieldURL:      url,
		FieldStatus:   status,
		FieldDuration: d.Milliseconds(),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}

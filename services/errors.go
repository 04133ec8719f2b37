package services

// APIError carries the HTTP status and application code a controller should
// surface for a failed operation. Messages are user-facing: specific for
// configuration and auth problems, generic for internal ones.
type APIError struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func unauthorized(code int, message string, err error) *APIError {
	return &APIError{Status: 401, Code: code, Message: message, Err: err}
}

func badRequest(code int, message string, err error) *APIError {
	return &APIError{Status: 400, Code: code, Message: message, Err: err}
}

func internal(code int, message string, err error) *APIError {
	return &APIError{Status: 500, Code: code, Message: message, Err: err}
}

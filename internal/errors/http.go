package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteHTTP converts a domain error into a JSON HTTP error response.
// Unknown errors are reported as internal without leaking their message.
func WriteHTTP(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	body := errorBody{Code: string(CodeUnknown), Message: "an unexpected error occurred"}
	status := http.StatusInternalServerError

	var appErr *Error
	if errors.As(err, &appErr) {
		body.Code = string(appErr.Code)
		body.Message = appErr.Message
		body.Metadata = appErr.Metadata
		status = appErr.Code.HTTPStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

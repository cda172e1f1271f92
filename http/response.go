package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest       = "bad_request"
	ErrTypeNotFound         = "not_found"
	ErrTypeMethodNotAllowed = "method_not_allowed"
	ErrTypeInternal         = "internal_error"
)

// ErrorResponse is the body returned when a request fails.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.Error(errors.New("encoding response failed").
			WithType(ErrTypeInternal).
			Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func BadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, ErrTypeBadRequest, err)
}

func NotFound(w http.ResponseWriter, err error) {
	writeError(w, http.StatusNotFound, ErrTypeNotFound, err)
}

func MethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}

	writeError(w, http.StatusMethodNotAllowed, ErrTypeMethodNotAllowed, errors.New("method not allowed"))
}

func InternalServerError(w http.ResponseWriter, err error) {
	logs.Error(err)
	writeError(w, http.StatusInternalServerError, ErrTypeInternal, errors.New("internal server error"))
}

func writeError(w http.ResponseWriter, statusCode int, defaultType string, err error) {
	errType := errors.Type(err)
	if errType == "" {
		errType = defaultType
	}

	WriteJSON(w, statusCode, ErrorResponse{
		Type:    errType,
		Message: err.Error(),
	})
}

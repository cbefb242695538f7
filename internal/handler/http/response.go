package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/olivethotokunefor/Mentora/pkg/errors"
	"github.com/olivethotokunefor/Mentora/pkg/validator"
)

// response is the envelope every JSON body uses. Exactly one of Data and
// Error is set.
type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an application error to its HTTP shape. Anything that
// is not an AppError is treated as internal: a generic 500 body goes to the
// client and the real error goes to the log.
func writeAppError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	logger.Error("unhandled error in request",
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, response{
		Error: &errorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "INVALID_INPUT",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

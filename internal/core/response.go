// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Problem is the error envelope for every non-2xx response,
// following the RFC 9457 problem-details shape.
type Problem struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

type PaginatedResponse struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Paginated(w http.ResponseWriter, data any, page, pageSize, total int) {
	writeJSON(w, http.StatusOK, PaginatedResponse{
		Data: data,
		Meta: PageMeta{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func writeProblem(
	w http.ResponseWriter,
	status int,
	code, detail string,
	fieldErrors map[string]string,
) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    code,
		Status:   status,
		Detail:   detail,
		Instance: w.Header().Get("X-Request-ID"),
		Errors:   fieldErrors,
	})
}

func BadRequest(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusBadRequest, "VALIDATION_FAILED", detail, nil)
}

func BadRequestFields(
	w http.ResponseWriter,
	detail string,
	fields map[string]string,
) {
	writeProblem(w, http.StatusBadRequest, "VALIDATION_FAILED", detail, fields)
}

func Unauthorized(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "authentication required"
	}
	writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", detail, nil)
}

func Forbidden(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "insufficient permissions"
	}
	writeProblem(w, http.StatusForbidden, "FORBIDDEN", detail, nil)
}

func NotFound(w http.ResponseWriter, resource string) {
	writeProblem(
		w,
		http.StatusNotFound,
		"NOT_FOUND",
		resource+" not found",
		nil,
	)
}

func Conflict(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusConflict, "CONFLICT", detail, nil)
}

// JSONError renders an AppError with its own status and code. Anything
// that is not an AppError is treated as an internal failure.
func JSONError(w http.ResponseWriter, err error) {
	if appErr, ok := AsAppError(err); ok {
		writeProblem(w, appErr.Status, appErr.Code, appErr.Message, nil)
		return
	}
	InternalServerError(w, err)
}

// InternalServerError logs the full error server-side and returns an
// opaque failure to the client. Internal detail never crosses the wire.
func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal server error",
		"error", err,
		"request_id", w.Header().Get("X-Request-ID"),
	)
	writeProblem(
		w,
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"an unexpected error occurred",
		nil,
	)
}

// FormatValidationError turns validator.ValidationErrors into a
// human-readable summary for the problem detail.
func FormatValidationError(err error) string {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(valErrs))
	for _, fe := range valErrs {
		msgs = append(msgs, formatFieldError(fe))
	}

	return strings.Join(msgs, "; ")
}

// ValidationFieldErrors maps each failing field to its constraint.
func ValidationFieldErrors(err error) map[string]string {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return nil
	}

	fields := make(map[string]string, len(valErrs))
	for _, fe := range valErrs {
		fields[strings.ToLower(fe.Field())] = formatFieldError(fe)
	}

	return fields
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

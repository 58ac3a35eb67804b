package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"product-service/internal/domain/catalog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	errEmptyBody   = fmt.Errorf("%w: request body is empty", catalog.ErrBadRequest)
	errRequestSize = errors.New("request too large")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Best effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleError maps domain errors to a status code. Unknown errors are logged
// and reported without detail.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErrs validator.ValidationErrors
		maxBytesErr    *http.MaxBytesError
	)

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrAlreadyExists),
		errors.Is(err, catalog.ErrNotEmpty),
		errors.Is(err, catalog.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrFileTooLarge),
		errors.Is(err, errRequestSize),
		errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, catalog.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrs):
		writeError(w, http.StatusBadRequest, formatValidationErrors(validationErrs))
	default:
		h.logger.Error(r.Context()).Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into the struct v and validates it
func (h *Handler) decodeJSON(r *http.Request, v any) error {
	if err := decodeBody(r, v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return fmt.Errorf("%w: invalid JSON: %s", catalog.ErrBadRequest, err.Error())
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation messages
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "gt", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), comparisonWord(fe.Tag()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func comparisonWord(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", catalog.ErrBadRequest, name, raw)
	}
	return id, nil
}

// pathParam returns a URL parameter decoded. chi matches against the escaped
// path whenever the request carries one, leaving escapes such as %2C in place.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw, nil
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid %s %q", catalog.ErrBadRequest, name, raw)
	}
	return value, nil
}

// queryList collects a query parameter given repeatedly or comma separated
func queryList(r *http.Request, name string) []string {
	var values []string
	for _, raw := range r.URL.Query()[name] {
		values = append(values, strings.Split(raw, ",")...)
	}
	return catalog.NormalizeNames(values)
}

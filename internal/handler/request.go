package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/auth"
)

// maxBodyBytes caps every JSON request body. Snippet content is limited to
// 100KB, so 1MB leaves plenty of headroom.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads exactly one JSON object into a T and runs its validate
// tags. Unknown fields are rejected so typos do not silently do nothing.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var dst T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&dst); err != nil {
		return dst, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return dst, apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}

	if err := validateStruct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("body", "request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.ValidationFailed("body", "request body is not valid JSON")
	case errors.As(err, &typeErr):
		return apperror.ValidationFailed(typeErr.Field,
			fmt.Sprintf("%s has the wrong type", typeErr.Field))
	case errors.As(err, &maxErr):
		return apperror.ValidationFailed("body",
			fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperror.ValidationFailed(field, fmt.Sprintf("unknown field %q", field))
	}
	return apperror.ValidationFailed("body", "request body could not be read")
}

// validateStruct reports the first failing validate tag as a validation
// error on that field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating request: %w", err)
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "min", "gte":
		msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		msg = field + " must be a valid email address"
	default:
		msg = field + " is invalid"
	}
	return apperror.ValidationFailed(field, msg)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// userID returns the authenticated caller, or "" on public routes.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

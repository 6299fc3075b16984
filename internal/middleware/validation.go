package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

type contextKey string

const validatedRequestKey contextKey = "validated_request"

// Validator is implemented by the interview request bodies in models.
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into a fresh T, validates it and hands
// it to the next handler through the context. An empty body decodes as the
// zero request, so start requests without a candidate name still pass.
func ValidateRequest[T Validator]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := newRequest[T]()
			if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
				utils.Error(w, http.StatusBadRequest, "invalid_json", "Invalid JSON in request body")
				return
			}
			if err := req.Validate(); err != nil {
				writeValidationError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), validatedRequestKey, req)))
		})
	}
}

// GetValidatedRequest returns the body stored by ValidateRequest.
func GetValidatedRequest[T any](r *http.Request) T {
	return r.Context().Value(validatedRequestKey).(T)
}

// newRequest allocates the value a pointer T refers to. Request types are
// pointers; a value T is returned as its zero value.
func newRequest[T Validator]() T {
	var zero T
	if t := reflect.TypeOf(zero); t != nil && t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface().(T)
	}
	return zero
}

func writeValidationError(w http.ResponseWriter, err error) {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		utils.JSON(w, http.StatusBadRequest, *errResp)
		return
	}
	utils.Error(w, http.StatusBadRequest, "validation_error", err.Error())
}

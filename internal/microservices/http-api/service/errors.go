package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/validation"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
	ErrInvalidToken    = errors.New("invalid token")
)

// ValidationError reports rejected input per json field. Errors that do not
// belong to a field are kept under non_field_errors.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(fields map[string][]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func notFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// lookup maps a missing row to ErrNotFound for resource and passes other
// errors through.
func lookup(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource)
	}
	return err
}

// authorize turns a permission decision into the matching sentinel.
func authorize(ev *permission.Evaluator, actor permission.Actor, kind permission.ResourceKind, action permission.Action, ownerID *int64) error {
	switch ev.Evaluate(actor, kind, action, ownerID) {
	case permission.Allow:
		return nil
	case permission.DenyUnauthenticated:
		return ErrUnauthenticated
	default:
		return ErrForbidden
	}
}

// decodeAndValidate reads the payload into dst and runs the validate tags.
// An empty body decodes as an empty object.
func decodeAndValidate(decode dto.Decoder, dst any) error {
	if decode != nil {
		if err := decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return decodeError(err)
		}
	}
	return validate(dst)
}

func validate(dst any) error {
	if fields := validation.Struct(dst); fields != nil {
		return NewValidationError(fields)
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := strings.SplitN(typeErr.Field, ".", 2)[0]
		return fieldError(field, typeMessage(typeErr.Type))
	}
	return fieldError(validation.NonFieldErrors, "JSON parse error - "+err.Error())
}

func typeMessage(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "Invalid value."
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice, reflect.Array:
		return "Expected a list of items."
	default:
		return "Invalid value."
	}
}

// uniqueViolation converts a storage duplicate into a ValidationError on
// field; other errors pass through.
func uniqueViolation(err error, field, msg string) error {
	if repository.IsUniqueViolation(err) {
		return fieldError(field, msg)
	}
	return err
}

// listPage converts the transport query to the repository window.
func listPage(q dto.ListQuery) repository.Page {
	return repository.Page{Page: q.Page, PageSize: q.PageSize}
}

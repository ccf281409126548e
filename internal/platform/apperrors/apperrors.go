// Package apperrors define la taxonomía de errores compartida por los módulos de acceso.
// Los paquetes de dominio envuelven estos sentinels con fmt.Errorf("%w: ...") y los
// handlers los traducen a status HTTP con errors.Is.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindForbidden   = "forbidden"
	KindConflict    = "conflict"
	KindUnavailable = "unavailable"
	KindInternal    = "internal"
)

func Validationf(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

func Conflictf(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func Unavailablef(format string, args ...any) error {
	return wrap(ErrUnavailable, format, args...)
}

// Unavailable envuelve un error de infraestructura conservando la causa.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Kind clasifica err según la taxonomía; cualquier otro error es "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

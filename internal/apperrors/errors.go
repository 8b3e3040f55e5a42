package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind классифицирует ошибку для перевода в HTTP-статус
type Kind string

const (
	KindValidation        Kind = "validation_failure"
	KindIdentityConflict  Kind = "identity_conflict"
	KindOwnershipConflict Kind = "ownership_conflict"
	KindMissingIdentifier Kind = "missing_identifier"
	KindReferenceNotFound Kind = "reference_not_found"
	KindStorage           Kind = "storage_failure"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Сентинелы для errors.Is: каждая *Error совпадает с сентинелом своего вида
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrIdentityConflict  = &Error{Kind: KindIdentityConflict}
	ErrOwnershipConflict = &Error{Kind: KindOwnershipConflict}
	ErrMissingIdentifier = &Error{Kind: KindMissingIdentifier}
	ErrReferenceNotFound = &Error{Kind: KindReferenceNotFound}
	ErrStorage           = &Error{Kind: KindStorage}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
)

// Error - структурированная ошибка, возвращаемая сервисами вызывающему коду
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только вид ошибки
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func IdentityConflict(message string) *Error {
	return New(KindIdentityConflict, message)
}

func OwnershipConflict(message string) *Error {
	return New(KindOwnershipConflict, message)
}

func MissingIdentifier(message string) *Error {
	return New(KindMissingIdentifier, message)
}

func ReferenceNotFound(message string) *Error {
	return New(KindReferenceNotFound, message)
}

func Storage(message string, err error) *Error {
	return Wrap(KindStorage, message, err)
}

// KindOf возвращает вид ошибки; неизвестные ошибки считаются внутренними
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus переводит вид ошибки в HTTP-статус
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindMissingIdentifier:
		return http.StatusBadRequest
	case KindIdentityConflict, KindOwnershipConflict:
		return http.StatusConflict
	case KindReferenceNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage возвращает текст, который можно показать клиенту
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal && appErr.Kind != KindStorage {
		if appErr.Message != "" {
			return appErr.Message
		}
	}
	switch KindOf(err) {
	case KindStorage:
		return "Ошибка при работе с хранилищем файлов"
	default:
		return "Внутренняя ошибка сервера"
	}
}

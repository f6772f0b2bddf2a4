// Package apperror berisi taksonomi error domain yang dipakai service dan
// diterjemahkan handler menjadi status HTTP.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindStore        Kind = "store"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
)

// Error adalah error domain. Fields berisi detail per field (validasi) atau
// informasi tambahan yang aman ditampilkan ke pengguna.
type Error struct {
	Kind      Kind
	Message   string
	Fields    map[string]string
	Retryable bool
	Err       error
}

// Sentinel per kind, dipakai dengan errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrStore        = &Error{Kind: KindStore}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is mencocokkan sentinel kind (Message kosong) berdasarkan Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// ForbiddenWith sama dengan Forbidden tetapi membawa detail, misalnya status
// akun dan alasan penolakan.
func ForbiddenWith(message string, fields map[string]string) *Error {
	return &Error{Kind: KindForbidden, Message: message, Fields: fields}
}

// Store membungkus kegagalan penyimpanan data.
func Store(err error, retryable bool) *Error {
	return &Error{
		Kind:      KindStore,
		Message:   "gagal mengakses penyimpanan data",
		Retryable: retryable,
		Err:       err,
	}
}

// As mengambil *Error dari rantai error.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf mengembalikan kind dari err, atau string kosong jika err bukan
// error domain.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// IsRetryable melaporkan apakah operasi aman untuk diulang.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindStore && appErr.Retryable
}

package auth

import (
	"errors"
	"fmt"
)

// Kind классифицирует причину отказа в аутентификации.
// Используется только в логах и метриках, клиенту не отдается.
type Kind int

const (
	// MissingCredential учетные данные не переданы
	MissingCredential Kind = iota + 1
	// MalformedCredential учетные данные не удалось разобрать
	MalformedCredential
	// InvalidCredential неверная подпись, пароль или неизвестный ключ
	InvalidCredential
	// ExpiredCredential срок действия истек
	ExpiredCredential
	// InactiveAccountOrKey аккаунт или ключ деактивирован
	InactiveAccountOrKey
)

// String возвращает короткую метку для метрик
func (k Kind) String() string {
	switch k {
	case MissingCredential:
		return "missing"
	case MalformedCredential:
		return "malformed"
	case InvalidCredential:
		return "invalid"
	case ExpiredCredential:
		return "expired"
	case InactiveAccountOrKey:
		return "inactive"
	default:
		return "unknown"
	}
}

// Error ошибка аутентификации с видом и внутренней причиной.
// Reason может содержать детали диагностики, в ответ ее не пишем.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s credential: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s credential: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает вид и причину, чтобы sentinel-ошибки работали с errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// Sentinel-ошибки для bearer и API ключей.
var (
	ErrTokenMalformed = &Error{Kind: MalformedCredential, Reason: "token malformed"}
	ErrTokenSignature = &Error{Kind: InvalidCredential, Reason: "token signature invalid"}
	ErrTokenExpired   = &Error{Kind: ExpiredCredential, Reason: "token expired"}

	ErrMissingHeader   = &Error{Kind: MissingCredential, Reason: "authorization header missing"}
	ErrMalformedHeader = &Error{Kind: MalformedCredential, Reason: "authorization header malformed"}

	ErrMissingKey  = &Error{Kind: MissingCredential, Reason: "api key missing"}
	ErrKeyNotFound = &Error{Kind: InvalidCredential, Reason: "api key not found"}
	ErrKeyExpired  = &Error{Kind: ExpiredCredential, Reason: "api key expired"}
	ErrKeyInactive = &Error{Kind: InactiveAccountOrKey, Reason: "api key inactive"}
)

// wrap возвращает копию sentinel с причиной cause
func wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Err: cause}
}

// KindOf извлекает вид ошибки аутентификации.
// Для всего, что не *Error, возвращает InvalidCredential.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InvalidCredential
}

package model

import "errors"

var (
	// ErrMemberNotRegistered возвращается, если читатель с указанным идентификатором не найден.
	ErrMemberNotRegistered = errors.New("member is not registered")
	// ErrBookUnavailable возвращается при попытке выдать отсутствующую или уже выданную книгу.
	ErrBookUnavailable = errors.New("book is not available for renting")
	// ErrBookNotRented возвращается при возврате книги, которая не числится за читателем.
	ErrBookNotRented = errors.New("book has not been rented out")
	// ErrCreditLimitExceeded возвращается, если новый баланс превысил бы кредитный потолок.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	// ErrPersistence оборачивает любые ошибки хранилища; частичная запись при этом исключена.
	ErrPersistence = errors.New("persistence failure")
)

// IsDomainError сообщает, является ли ошибка отказом бизнес-правила, а не сбоем хранилища.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrMemberNotRegistered) ||
		errors.Is(err, ErrBookUnavailable) ||
		errors.Is(err, ErrBookNotRented) ||
		errors.Is(err, ErrCreditLimitExceeded)
}

// Package model содержит доменные сущности библиотечного сервиса.
package model

import (
	"fmt"
	"time"
)

// Member представляет зарегистрированного читателя библиотеки.
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	IsAdmin     bool   `json:"is_admin"`
}

// BookStatus описывает состояние экземпляра книги.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusRented    BookStatus = "rented"

	// legacyStatusNotRented встречается в старых данных и равнозначен available.
	legacyStatusNotRented = "not-rented"
)

// ParseBookStatus приводит строковое представление статуса к BookStatus.
// Пустая строка трактуется как available.
func ParseBookStatus(s string) (BookStatus, error) {
	switch s {
	case "", string(BookStatusAvailable), legacyStatusNotRented:
		return BookStatusAvailable, nil
	case string(BookStatusRented):
		return BookStatusRented, nil
	default:
		return "", fmt.Errorf("unknown book status %q", s)
	}
}

// Book описывает книгу и условия её аренды.
type Book struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	ISBN           string     `json:"isbn"`
	PublishedAt    time.Time  `json:"date_of_publication"`
	Status         BookStatus `json:"status"`
	RentFee        int64      `json:"rent_fee"`
	LatePenaltyFee int64      `json:"late_penalty_fee"`
}

// IsRented сообщает, выдана ли книга.
func (b *Book) IsRented() bool {
	return b.Status == BookStatusRented
}

// TransactionKind различает выдачу и возврат.
type TransactionKind string

const (
	TransactionBorrowed TransactionKind = "borrowed"
	TransactionReturned TransactionKind = "returned"
)

// Transaction — неизменяемая запись журнала выдач.
// Возврат хранится отдельной строкой, которая ссылается на закрываемую выдачу через BorrowID.
type Transaction struct {
	ID           int64           `json:"id"`
	MemberID     int64           `json:"member_id"`
	BookID       int64           `json:"book_id"`
	Kind         TransactionKind `json:"kind"`
	RentFee      int64           `json:"rent_fee"`
	DateBorrowed time.Time       `json:"date_borrowed"`
	DateDue      time.Time       `json:"date_due"`
	BorrowID     *int64          `json:"borrow_id,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// IsReturn сообщает, является ли запись возвратом.
func (t *Transaction) IsReturn() bool {
	return t.Kind == TransactionReturned
}

// BalanceEntry — снимок накопленного долга читателя на момент времени.
type BalanceEntry struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	Balance       int64     `json:"balance"`
	DateOfEntry   time.Time `json:"date_of_entry"`
	TransactionID *int64    `json:"transaction_id,omitempty"`
}

// Outcome описывает успешный исход выдачи или возврата.
type Outcome string

const (
	OutcomeBorrowInitiated Outcome = "BorrowInitiated"
	OutcomeReturnInitiated Outcome = "ReturnInitiated"
	OutcomeLateReturnNoted Outcome = "LateReturnNoted"
)

// Receipt возвращается оркестратором после успешной операции.
type Receipt struct {
	Outcome     Outcome      `json:"outcome"`
	Fee         int64        `json:"fee"`
	Transaction Transaction  `json:"transaction"`
	Balance     BalanceEntry `json:"balance"`
}

// MemberBalance содержит последний баланс читателя.
type MemberBalance struct {
	EntryID     int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Username    string    `json:"username"`
	Balance     int64     `json:"balance"`
	DateOfEntry time.Time `json:"date_of_entry"`
}

// StatusCount содержит количество книг в одном статусе.
type StatusCount struct {
	Status BookStatus `json:"id"`
	Count  int64      `json:"value"`
}

// BalancePoint содержит сумму записей баланса за один день.
type BalancePoint struct {
	Day   time.Time `json:"x"`
	Total int64     `json:"y"`
}

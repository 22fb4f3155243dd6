// Package rental реализует конечный автомат аренды книги: available -> rented -> available.
//
// Функции пакета чистые: они принимают уже загруженное состояние и текущее время
// и возвращают решение, которое оркестратор должен записать в хранилище.
package rental

import (
	"time"

	"github.com/mmeshcher/library-system/internal/model"
)

// DefaultLoanPeriod задаёт срок, на который выдаётся книга.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Decision описывает результат перехода автомата.
type Decision struct {
	Outcome     model.Outcome
	Transaction model.Transaction
	NextStatus  model.BookStatus
	// Delta: изменение баланса читателя.
	Delta int64
	// Fee равен штрафу при возврате и RentFee при выдаче.
	Fee int64
}

// Borrow решает, можно ли выдать книгу читателю.
func Borrow(member *model.Member, book *model.Book, now time.Time, loanPeriod time.Duration) (Decision, error) {
	if member == nil {
		return Decision{}, model.ErrMemberNotRegistered
	}
	if book == nil || book.IsRented() {
		return Decision{}, model.ErrBookUnavailable
	}

	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}

	tx := model.Transaction{
		MemberID:     member.ID,
		BookID:       book.ID,
		Kind:         model.TransactionBorrowed,
		RentFee:      book.RentFee,
		DateBorrowed: now,
		DateDue:      now.Add(loanPeriod),
		OccurredAt:   now,
	}

	return Decision{
		Outcome:     model.OutcomeBorrowInitiated,
		Transaction: tx,
		NextStatus:  model.BookStatusRented,
		Delta:       book.RentFee,
		Fee:         book.RentFee,
	}, nil
}

// Return решает, как закрыть открытую выдачу.
// Возврат после DateDue исходной выдачи считается просроченным: арендная плата
// погашается, а штраф за просрочку остаётся единственным начислением.
func Return(member *model.Member, book *model.Book, openBorrow *model.Transaction, now time.Time) (Decision, error) {
	if member == nil {
		return Decision{}, model.ErrMemberNotRegistered
	}
	if book == nil || !book.IsRented() || openBorrow == nil {
		return Decision{}, model.ErrBookNotRented
	}

	borrowID := openBorrow.ID
	tx := model.Transaction{
		MemberID:     member.ID,
		BookID:       book.ID,
		Kind:         model.TransactionReturned,
		DateBorrowed: openBorrow.DateBorrowed,
		DateDue:      openBorrow.DateDue,
		BorrowID:     &borrowID,
		OccurredAt:   now,
	}

	if IsLate(openBorrow, now) {
		tx.RentFee = book.LatePenaltyFee
		return Decision{
			Outcome:     model.OutcomeLateReturnNoted,
			Transaction: tx,
			NextStatus:  model.BookStatusAvailable,
			Delta:       book.LatePenaltyFee - book.RentFee,
			Fee:         book.LatePenaltyFee,
		}, nil
	}

	return Decision{
		Outcome:     model.OutcomeReturnInitiated,
		Transaction: tx,
		NextStatus:  model.BookStatusAvailable,
		Delta:       -book.RentFee,
	}, nil
}

// IsLate сообщает, просрочен ли возврат относительно срока исходной выдачи.
func IsLate(borrow *model.Transaction, now time.Time) bool {
	return now.After(borrow.DateDue)
}

// Package ledger ведёт журнал балансов читателей.
//
// Журнал только дополняется: текущим балансом считается запись с наибольшей date_of_entry
// (при равенстве с наибольшим id). Старые записи никогда не изменяются.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/library-system/internal/model"
)

// Store описывает операции хранилища, нужные калькулятору баланса.
type Store interface {
	LatestBalanceEntry(ctx context.Context, memberID int64) (*model.BalanceEntry, error)
	InsertBalanceEntry(ctx context.Context, entry *model.BalanceEntry) error
}

// Policy проверяет баланс, который получится после выдачи книги.
type Policy interface {
	Check(newBalance int64) error
}

// NoLimit разрешает любой баланс.
type NoLimit struct{}

// Check всегда возвращает nil.
func (NoLimit) Check(int64) error { return nil }

// CreditCeiling запрещает выдачу, после которой долг превысит Limit.
// Limit <= 0 отключает правило.
type CreditCeiling struct {
	Limit int64
}

// Check реализует Policy.
func (c CreditCeiling) Check(newBalance int64) error {
	if c.Limit <= 0 {
		return nil
	}
	if newBalance > c.Limit {
		return fmt.Errorf("%w: balance %d would exceed %d", model.ErrCreditLimitExceeded, newBalance, c.Limit)
	}
	return nil
}

// PolicyFromLimit возвращает CreditCeiling для положительного лимита и NoLimit иначе.
func PolicyFromLimit(limit int64) Policy {
	if limit > 0 {
		return CreditCeiling{Limit: limit}
	}
	return NoLimit{}
}

// CurrentBalance возвращает текущий баланс читателя или 0, если записей нет.
func CurrentBalance(ctx context.Context, s Store, memberID int64) (int64, error) {
	entry, err := s.LatestBalanceEntry(ctx, memberID)
	if err != nil {
		return 0, fmt.Errorf("latest balance entry: %w", err)
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Balance, nil
}

// Calculator добавляет записи в журнал балансов с учётом политики.
type Calculator struct {
	policy Policy
}

// NewCalculator создаёт калькулятор; nil-политика равнозначна NoLimit.
func NewCalculator(p Policy) *Calculator {
	if p == nil {
		p = NoLimit{}
	}
	return &Calculator{policy: p}
}

// Append вычисляет новый баланс как текущий + delta и сохраняет его новой записью.
// Политика применяется только к выдаче: возврат закрывает аренду при любом балансе.
// При отказе политики хранилище не изменяется.
func (c *Calculator) Append(ctx context.Context, s Store, kind model.TransactionKind, memberID, delta int64, transactionID *int64, at time.Time) (model.BalanceEntry, error) {
	current, err := CurrentBalance(ctx, s, memberID)
	if err != nil {
		return model.BalanceEntry{}, err
	}

	next := current + delta
	if kind == model.TransactionBorrowed {
		if err := c.policy.Check(next); err != nil {
			return model.BalanceEntry{}, err
		}
	}

	entry := model.BalanceEntry{
		MemberID:      memberID,
		Balance:       next,
		DateOfEntry:   at,
		TransactionID: transactionID,
	}
	if err := s.InsertBalanceEntry(ctx, &entry); err != nil {
		return model.BalanceEntry{}, fmt.Errorf("insert balance entry: %w", err)
	}

	return entry, nil
}

// Package service реализует бизнес-логику библиотечного сервиса: выдачу и возврат книг
// в одной транзакции хранилища, а также справочники читателей и книг.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/library-system/internal/ledger"
	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/rental"
	"github.com/mmeshcher/library-system/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error

	CreateMember(ctx context.Context, m *model.Member) error
	GetMemberByID(ctx context.Context, id int64) (*model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, m *model.Member) error
	DeleteMember(ctx context.Context, id int64) error

	CreateBook(ctx context.Context, b *model.Book) error
	GetBookByID(ctx context.Context, id int64) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, query string) ([]model.Book, error)
	UpdateBook(ctx context.Context, b *model.Book) error
	DeleteBook(ctx context.Context, id int64) error

	CurrentBalance(ctx context.Context, memberID int64) (*model.BalanceEntry, error)
	MemberTransactions(ctx context.Context, memberID int64) ([]model.Transaction, error)
	LatestBalances(ctx context.Context, onlyOutstanding bool) ([]model.MemberBalance, error)
	BookStatusCounts(ctx context.Context) ([]model.StatusCount, error)
	BalanceSeries(ctx context.Context) ([]model.BalancePoint, error)
}

// Service содержит бизнес-логику библиотечного сервиса.
type Service struct {
	repo       Repository
	logger     *zap.Logger
	calc       *ledger.Calculator
	loanPeriod time.Duration
	now        func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLoanPeriod задаёт срок выдачи книги.
func WithLoanPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithPolicy задаёт политику проверки баланса (например, кредитный потолок).
func WithPolicy(p ledger.Policy) Option {
	return func(s *Service) {
		s.calc = ledger.NewCalculator(p)
	}
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repo:       repo,
		logger:     logger,
		calc:       ledger.NewCalculator(nil),
		loanPeriod: rental.DefaultLoanPeriod,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Borrow выдаёт книгу читателю. Запись транзакции, смена статуса книги и новая запись
// баланса фиксируются вместе либо не фиксируются вовсе.
func (s *Service) Borrow(ctx context.Context, memberID, bookID int64) (*model.Receipt, error) {
	var receipt model.Receipt

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		member, book, err := loadParties(ctx, tx, memberID, bookID)
		if err != nil {
			return err
		}

		d, err := rental.Borrow(member, book, s.now(), s.loanPeriod)
		if err != nil {
			return err
		}

		receipt, err = s.apply(ctx, tx, book, d, model.ErrBookUnavailable)
		return err
	})
	if err != nil {
		s.logFailure("borrow", memberID, bookID, err)
		return nil, err
	}

	s.logger.Info("book borrowed",
		zap.Int64("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Int64("transaction_id", receipt.Transaction.ID),
		zap.Int64("balance", receipt.Balance.Balance),
		zap.Time("date_due", receipt.Transaction.DateDue),
	)

	return &receipt, nil
}

// ReturnBook закрывает открытую выдачу книги читателем. Возврат после срока
// начисляет штраф за просрочку вместо арендной платы.
func (s *Service) ReturnBook(ctx context.Context, memberID, bookID int64) (*model.Receipt, error) {
	var receipt model.Receipt

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		member, book, err := loadParties(ctx, tx, memberID, bookID)
		if err != nil {
			return err
		}

		var open *model.Transaction
		if member != nil && book != nil {
			open, err = tx.FindOpenBorrow(ctx, memberID, bookID)
			if err != nil && !errors.Is(err, repository.ErrOpenBorrowNotFound) {
				return persistence(err)
			}
		}

		d, err := rental.Return(member, book, open, s.now())
		if err != nil {
			return err
		}

		receipt, err = s.apply(ctx, tx, book, d, model.ErrBookNotRented)
		return err
	})
	if err != nil {
		s.logFailure("return", memberID, bookID, err)
		return nil, err
	}

	s.logger.Info("book returned",
		zap.Int64("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.String("outcome", string(receipt.Outcome)),
		zap.Int64("fee", receipt.Fee),
		zap.Int64("balance", receipt.Balance.Balance),
	)

	return &receipt, nil
}

// loadParties блокирует строку читателя, затем строку книги. Отсутствующая сущность
// возвращается как nil: решение об ошибке принимает автомат аренды.
func loadParties(ctx context.Context, tx repository.Tx, memberID, bookID int64) (*model.Member, *model.Book, error) {
	member, err := tx.GetMember(ctx, memberID)
	if err != nil {
		if !errors.Is(err, repository.ErrMemberNotFound) {
			return nil, nil, persistence(err)
		}
		member = nil
	}

	book, err := tx.GetBook(ctx, bookID)
	if err != nil {
		if !errors.Is(err, repository.ErrBookNotFound) {
			return nil, nil, persistence(err)
		}
		book = nil
	}

	return member, book, nil
}

// apply записывает решение автомата. lostRace возвращается, если статус книги
// успел измениться после чтения.
func (s *Service) apply(ctx context.Context, tx repository.Tx, book *model.Book, d rental.Decision, lostRace error) (model.Receipt, error) {
	tr := d.Transaction
	if err := tx.InsertTransaction(ctx, &tr); err != nil {
		return model.Receipt{}, persistence(err)
	}

	if err := tx.UpdateBookStatus(ctx, book.ID, book.Status, d.NextStatus); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return model.Receipt{}, lostRace
		}
		return model.Receipt{}, persistence(err)
	}

	entry, err := s.calc.Append(ctx, tx, tr.Kind, tr.MemberID, d.Delta, &tr.ID, tr.OccurredAt)
	if err != nil {
		if model.IsDomainError(err) {
			return model.Receipt{}, err
		}
		return model.Receipt{}, persistence(err)
	}

	return model.Receipt{
		Outcome:     d.Outcome,
		Fee:         d.Fee,
		Transaction: tr,
		Balance:     entry,
	}, nil
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", model.ErrPersistence, err)
}

func (s *Service) logFailure(op string, memberID, bookID int64, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int64("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Error(err),
	}
	if model.IsDomainError(err) {
		s.logger.Debug("rental rejected", fields...)
		return
	}
	s.logger.Error("rental failed", fields...)
}

// CreateMember регистрирует нового читателя.
func (s *Service) CreateMember(ctx context.Context, m *model.Member) error {
	return s.repo.CreateMember(ctx, m)
}

// GetMember возвращает читателя по идентификатору.
func (s *Service) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	return s.repo.GetMemberByID(ctx, id)
}

// ListMembers возвращает всех читателей.
func (s *Service) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.repo.ListMembers(ctx)
}

// UpdateMember обновляет данные читателя.
func (s *Service) UpdateMember(ctx context.Context, m *model.Member) error {
	return s.repo.UpdateMember(ctx, m)
}

// DeleteMember удаляет читателя.
func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	return s.repo.DeleteMember(ctx, id)
}

// CreateBook добавляет книгу в каталог.
func (s *Service) CreateBook(ctx context.Context, b *model.Book) error {
	return s.repo.CreateBook(ctx, b)
}

// GetBook возвращает книгу по идентификатору.
func (s *Service) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	return s.repo.GetBookByID(ctx, id)
}

// ListBooks возвращает каталог.
func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

// SearchBooks ищет книги по названию или автору.
func (s *Service) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	return s.repo.SearchBooks(ctx, query)
}

// UpdateBook обновляет описание и тарифы книги.
func (s *Service) UpdateBook(ctx context.Context, b *model.Book) error {
	return s.repo.UpdateBook(ctx, b)
}

// DeleteBook удаляет книгу из каталога.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

// CurrentBalance возвращает последнюю запись баланса читателя.
// Для читателя без записей возвращается нулевой баланс.
func (s *Service) CurrentBalance(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	if _, err := s.repo.GetMemberByID(ctx, memberID); err != nil {
		return nil, err
	}

	entry, err := s.repo.CurrentBalance(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &model.BalanceEntry{MemberID: memberID}, nil
	}
	return entry, nil
}

// MemberTransactions возвращает историю выдач и возвратов читателя.
func (s *Service) MemberTransactions(ctx context.Context, memberID int64) ([]model.Transaction, error) {
	if _, err := s.repo.GetMemberByID(ctx, memberID); err != nil {
		return nil, err
	}
	return s.repo.MemberTransactions(ctx, memberID)
}

// AllBalances возвращает последний баланс каждого читателя.
func (s *Service) AllBalances(ctx context.Context) ([]model.MemberBalance, error) {
	return s.repo.LatestBalances(ctx, false)
}

// PendingReturns возвращает читателей с непогашенным долгом.
func (s *Service) PendingReturns(ctx context.Context) ([]model.MemberBalance, error) {
	return s.repo.LatestBalances(ctx, true)
}

// BookStatusCounts возвращает распределение книг по статусам.
func (s *Service) BookStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	return s.repo.BookStatusCounts(ctx)
}

// BalanceSeries возвращает дневные суммы записей баланса.
func (s *Service) BalanceSeries(ctx context.Context) ([]model.BalancePoint, error) {
	return s.repo.BalanceSeries(ctx)
}

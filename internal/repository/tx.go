package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/library-system/internal/model"
)

// Tx описывает операции хранилища, доступные внутри одной транзакции выдачи или возврата.
type Tx interface {
	// GetMember читает читателя и блокирует его строку до конца транзакции.
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	// GetBook читает книгу и блокирует её строку до конца транзакции.
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	// FindOpenBorrow возвращает последнюю незакрытую выдачу книги читателю.
	FindOpenBorrow(ctx context.Context, memberID, bookID int64) (*model.Transaction, error)
	// LatestBalanceEntry возвращает последнюю запись баланса или nil, если записей нет.
	LatestBalanceEntry(ctx context.Context, memberID int64) (*model.BalanceEntry, error)
	InsertTransaction(ctx context.Context, t *model.Transaction) error
	// UpdateBookStatus меняет статус, только если текущий статус равен from.
	UpdateBookStatus(ctx context.Context, bookID int64, from, to model.BookStatus) error
	InsertBalanceEntry(ctx context.Context, e *model.BalanceEntry) error
}

type pgTx struct {
	q querier
}

const memberColumns = `id, username, email, phone_number, address, is_admin`

const bookColumns = `id, title, author, isbn, date_of_publication, status, rent_fee, late_penalty_fee`

const transactionColumns = `id, member_id, book_id, kind, rent_fee, date_borrowed, date_due, borrow_id, occurred_at`

// openBorrowQuery ищет выдачу, на которую ещё не ссылается ни одна строка возврата.
const openBorrowQuery = `SELECT ` + transactionColumns + `
	FROM transactions t
	WHERE t.member_id = $1 AND t.book_id = $2 AND t.kind = $3
	  AND NOT EXISTS (SELECT 1 FROM transactions r WHERE r.borrow_id = t.id)
	ORDER BY t.date_borrowed DESC, t.id DESC
	LIMIT 1`

const updateBookStatusQuery = `UPDATE books SET status = $1 WHERE id = $2 AND status = $3`

func (t *pgTx) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`,
		id,
	)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("lock member: %w", err)
	}
	return m, nil
}

func (t *pgTx) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`,
		id,
	)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lock book: %w", err)
	}
	return b, nil
}

func (t *pgTx) FindOpenBorrow(ctx context.Context, memberID, bookID int64) (*model.Transaction, error) {
	row := t.q.QueryRow(ctx, openBorrowQuery,
		memberID, bookID, string(model.TransactionBorrowed),
	)

	tr, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOpenBorrowNotFound
		}
		return nil, fmt.Errorf("find open borrow: %w", err)
	}
	return tr, nil
}

func (t *pgTx) LatestBalanceEntry(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	return latestBalanceEntry(ctx, t.q, memberID)
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *model.Transaction) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO transactions (member_id, book_id, kind, rent_fee, date_borrowed, date_due, borrow_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		tr.MemberID, tr.BookID, string(tr.Kind), tr.RentFee, tr.DateBorrowed, tr.DateDue, tr.BorrowID, tr.OccurredAt,
	).Scan(&tr.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateBookStatus(ctx context.Context, bookID int64, from, to model.BookStatus) error {
	tag, err := t.q.Exec(ctx, updateBookStatusQuery,
		string(to), bookID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrStatusConflict
	}
	return nil
}

func (t *pgTx) InsertBalanceEntry(ctx context.Context, e *model.BalanceEntry) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO balance_entries (member_id, balance, date_of_entry, transaction_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.MemberID, e.Balance, e.DateOfEntry, e.TransactionID,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert balance entry: %w", err)
	}
	return nil
}

func latestBalanceEntry(ctx context.Context, q querier, memberID int64) (*model.BalanceEntry, error) {
	var e model.BalanceEntry
	err := q.QueryRow(ctx,
		`SELECT id, member_id, balance, date_of_entry, transaction_id
		 FROM balance_entries
		 WHERE member_id = $1
		 ORDER BY date_of_entry DESC, id DESC
		 LIMIT 1`,
		memberID,
	).Scan(&e.ID, &e.MemberID, &e.Balance, &e.DateOfEntry, &e.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest balance: %w", err)
	}
	return &e, nil
}

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	if err := row.Scan(&m.ID, &m.Username, &m.Email, &m.PhoneNumber, &m.Address, &m.IsAdmin); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var (
		b      model.Book
		status string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.PublishedAt, &status, &b.RentFee, &b.LatePenaltyFee); err != nil {
		return nil, err
	}

	st, err := model.ParseBookStatus(status)
	if err != nil {
		return nil, err
	}
	b.Status = st

	return &b, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tr   model.Transaction
		kind string
	)
	err := row.Scan(&tr.ID, &tr.MemberID, &tr.BookID, &kind, &tr.RentFee, &tr.DateBorrowed, &tr.DateDue, &tr.BorrowID, &tr.OccurredAt)
	if err != nil {
		return nil, err
	}
	tr.Kind = model.TransactionKind(kind)
	return &tr, nil
}

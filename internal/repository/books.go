package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/library-system/internal/model"
)

const dialectPostgres = "postgres"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CreateBook сохраняет новую книгу. Новая книга всегда доступна для выдачи.
func (r *PostgresRepository) CreateBook(ctx context.Context, b *model.Book) error {
	b.Status = model.BookStatusAvailable

	err := r.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, isbn, date_of_publication, status, rent_fee, late_penalty_fee)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		b.Title, b.Author, b.ISBN, b.PublishedAt, string(b.Status), b.RentFee, b.LatePenaltyFee,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrBookExists, b.ISBN)
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// GetBookByID возвращает книгу без блокировки строки.
func (r *PostgresRepository) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListBooks возвращает все книги по возрастанию идентификатора.
func (r *PostgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	return r.SearchBooks(ctx, "")
}

// SearchBooks ищет книги по подстроке в названии или имени автора без учёта регистра.
// Пустой запрос возвращает все книги.
func (r *PostgresRepository) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	sqlQuery, args, err := buildBookSearchQuery(query)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return books, nil
}

func buildBookSearchQuery(query string) (string, []any, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From("books").
		Select("id", "title", "author", "isbn", "date_of_publication", "status", "rent_fee", "late_penalty_fee").
		Order(goqu.I("id").Asc())

	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		selectStmt = selectStmt.Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
		))
	}

	sqlQuery, args, err := selectStmt.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build book query: %w", err)
	}
	return sqlQuery, args, nil
}

// UpdateBook перезаписывает описание и тарифы книги. Статус выдачи меняется
// только через выдачу и возврат.
func (r *PostgresRepository) UpdateBook(ctx context.Context, b *model.Book) error {
	row := r.pool.QueryRow(ctx,
		`UPDATE books
		 SET title = $1, author = $2, isbn = $3, date_of_publication = $4, rent_fee = $5, late_penalty_fee = $6
		 WHERE id = $7
		 RETURNING status`,
		b.Title, b.Author, b.ISBN, b.PublishedAt, b.RentFee, b.LatePenaltyFee, b.ID,
	)

	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrBookExists, b.ISBN)
		}
		return fmt.Errorf("update book: %w", err)
	}

	st, err := model.ParseBookStatus(status)
	if err != nil {
		return err
	}
	b.Status = st

	return nil
}

// DeleteBook удаляет книгу, если на неё не ссылается ни одна транзакция.
func (r *PostgresRepository) DeleteBook(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookInUse
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

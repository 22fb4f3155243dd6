// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrMemberNotFound возвращается, если читатель не найден.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMemberExists возвращается при нарушении уникальности username, email или телефона.
	ErrMemberExists = errors.New("member already exists")
	// ErrMemberHasLoans возвращается при удалении читателя, у которого есть невозвращённые книги.
	ErrMemberHasLoans = errors.New("member has unreturned books")
	// ErrBookNotFound возвращается, если книга не найдена.
	ErrBookNotFound = errors.New("book not found")
	// ErrBookExists возвращается при попытке добавить книгу с уже существующим ISBN.
	ErrBookExists = errors.New("book already exists")
	// ErrBookInUse возвращается при удалении книги, на которую ссылаются транзакции.
	ErrBookInUse = errors.New("book is referenced by transactions")
	// ErrOpenBorrowNotFound возвращается, если у читателя нет открытой выдачи этой книги.
	ErrOpenBorrowNotFound = errors.New("open borrow not found")
	// ErrStatusConflict возвращается, если статус книги изменился после чтения.
	ErrStatusConflict = errors.New("book status changed concurrently")
)

// querier — общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	err = withRetry(ctx, func() error { return pool.Ping(ctx) })
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	return Migrate(ctx, db, "up")
}

// Migrate выполняет команду goose (up, down, status) над встроенными миграциями.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, "migrations")
	case "down":
		err = goose.DownContext(ctx, db, "migrations")
	case "status":
		err = goose.StatusContext(ctx, db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("run migrations %s: %w", command, err)
	}

	return nil
}

// withRetry повторяет подключение при сетевых сбоях. Используется только при старте:
// операции выдачи и возврата выполняются ровно один раз.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isConnectionError(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) || pgErr.Code == pgerrcode.CannotConnectNow
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithinTx выполняет fn в одной транзакции БД. Транзакция фиксируется только при
// успешном завершении fn; на любом другом пути (ошибка, паника) выполняется откат.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.withinTx(ctx, func(ctx context.Context, tx *pgTx) error {
		return fn(ctx, tx)
	})
}

func (r *PostgresRepository) withinTx(ctx context.Context, fn func(ctx context.Context, tx *pgTx) error) error {
	pgxTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer pgxTx.Rollback(ctx) //nolint:errcheck // после Commit возвращает ErrTxClosed

	if err := fn(ctx, &pgTx{q: pgxTx}); err != nil {
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

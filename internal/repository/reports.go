package repository

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mmeshcher/library-system/internal/model"
)

// CurrentBalance возвращает последнюю запись баланса читателя или nil, если записей нет.
func (r *PostgresRepository) CurrentBalance(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	return latestBalanceEntry(ctx, r.pool, memberID)
}

// MemberTransactions возвращает историю выдач и возвратов читателя, новые записи первыми.
func (r *PostgresRepository) MemberTransactions(ctx context.Context, memberID int64) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE member_id = $1
		 ORDER BY occurred_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, *tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// LatestBalances возвращает последнюю запись баланса каждого читателя.
// При onlyOutstanding = true остаются только читатели с положительным долгом.
func (r *PostgresRepository) LatestBalances(ctx context.Context, onlyOutstanding bool) ([]model.MemberBalance, error) {
	sqlQuery, args, err := buildLatestBalancesQuery(onlyOutstanding)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("select latest balances: %w", err)
	}
	defer rows.Close()

	var res []model.MemberBalance
	for rows.Next() {
		var mb model.MemberBalance
		if err := rows.Scan(&mb.EntryID, &mb.MemberID, &mb.Username, &mb.Balance, &mb.DateOfEntry); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		res = append(res, mb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func buildLatestBalancesQuery(onlyOutstanding bool) (string, []any, error) {
	builder := goqu.Dialect(dialectPostgres)

	latest := builder.
		From(goqu.T("balance_entries").As("b")).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("b.member_id")))).
		Select(
			goqu.I("b.id").As("id"),
			goqu.I("b.member_id").As("member_id"),
			goqu.I("m.username").As("username"),
			goqu.I("b.balance").As("balance"),
			goqu.I("b.date_of_entry").As("date_of_entry"),
		).
		Distinct(goqu.I("b.member_id")).
		Order(goqu.I("b.member_id").Asc(), goqu.I("b.date_of_entry").Desc(), goqu.I("b.id").Desc())

	selectStmt := builder.
		From(latest.As("latest")).
		Select("id", "member_id", "username", "balance", "date_of_entry").
		Order(goqu.C("member_id").Asc())

	if onlyOutstanding {
		selectStmt = selectStmt.Where(goqu.C("balance").Gt(0))
	}

	sqlQuery, args, err := selectStmt.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build latest balances query: %w", err)
	}
	return sqlQuery, args, nil
}

// BookStatusCounts возвращает количество книг в каждом статусе.
func (r *PostgresRepository) BookStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM books GROUP BY status ORDER BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	defer rows.Close()

	var res []model.StatusCount
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}

		st, err := model.ParseBookStatus(status)
		if err != nil {
			return nil, err
		}
		res = append(res, model.StatusCount{Status: st, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// BalanceSeries возвращает сумму записей баланса за каждый день.
func (r *PostgresRepository) BalanceSeries(ctx context.Context) ([]model.BalancePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', date_of_entry) AS day, SUM(balance)::BIGINT
		 FROM balance_entries
		 GROUP BY day
		 ORDER BY day`,
	)
	if err != nil {
		return nil, fmt.Errorf("select balance series: %w", err)
	}
	defer rows.Close()

	var res []model.BalancePoint
	for rows.Next() {
		var p model.BalancePoint
		if err := rows.Scan(&p.Day, &p.Total); err != nil {
			return nil, fmt.Errorf("scan balance point: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

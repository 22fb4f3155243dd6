package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/library-system/internal/model"
)

// CreateMember сохраняет нового читателя и заполняет его идентификатор.
func (r *PostgresRepository) CreateMember(ctx context.Context, m *model.Member) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (username, email, phone_number, address, is_admin)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		m.Username, m.Email, m.PhoneNumber, m.Address, m.IsAdmin,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrMemberExists, m.Username)
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// GetMemberByID возвращает читателя без блокировки строки.
func (r *PostgresRepository) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListMembers возвращает всех читателей по возрастанию идентификатора.
func (r *PostgresRepository) ListMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return members, nil
}

// UpdateMember перезаписывает контактные данные читателя.
func (r *PostgresRepository) UpdateMember(ctx context.Context, m *model.Member) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members
		 SET username = $1, email = $2, phone_number = $3, address = $4, is_admin = $5
		 WHERE id = $6`,
		m.Username, m.Email, m.PhoneNumber, m.Address, m.IsAdmin, m.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrMemberExists, m.Username)
		}
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeleteMember удаляет читателя вместе с его транзакциями и записями баланса.
// Читателя с невозвращёнными книгами удалить нельзя: иначе книга навсегда осталась бы выданной.
func (r *PostgresRepository) DeleteMember(ctx context.Context, id int64) error {
	return r.withinTx(ctx, func(ctx context.Context, tx *pgTx) error {
		if _, err := tx.GetMember(ctx, id); err != nil {
			return err
		}

		var open bool
		err := tx.q.QueryRow(ctx,
			`SELECT EXISTS (
			     SELECT 1 FROM transactions t
			     WHERE t.member_id = $1 AND t.kind = $2
			       AND NOT EXISTS (SELECT 1 FROM transactions r WHERE r.borrow_id = t.id)
			 )`,
			id, string(model.TransactionBorrowed),
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("check open borrows: %w", err)
		}
		if open {
			return ErrMemberHasLoans
		}

		if _, err := tx.q.Exec(ctx, `DELETE FROM members WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		return nil
	})
}

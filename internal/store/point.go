package store

import (
	"database/sql"
	"fmt"

	"github.com/sorenhale/chorebank/internal/model"
)

// PointStore owns per-user balances and the append-only point history.
// Every balance mutation writes exactly one history row in the same
// transaction, so the balance always equals the signed sum of history.
type PointStore struct {
	db *sql.DB
}

func NewPointStore(db *sql.DB) *PointStore {
	return &PointStore{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

const balanceCols = `user_id, balance, updated_at`

func scanBalance(scanner interface{ Scan(...any) error }) (*model.PointBalance, error) {
	var b model.PointBalance
	if err := scanner.Scan(&b.UserID, &b.Balance, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func ensureBalanceRow(q execer, userID int64) error {
	_, err := q.Exec(
		`INSERT INTO point_balances (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ensure balance row: %w", err)
	}
	return nil
}

// GetBalance returns the user's balance, creating a zero row on first access.
func (s *PointStore) GetBalance(userID int64) (*model.PointBalance, error) {
	if err := ensureBalanceRow(s.db, userID); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+balanceCols+` FROM point_balances WHERE user_id = ?`, userID)
	b, err := scanBalance(row)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// creditTx adds amount to the user's balance and appends the matching
// history row. Must run inside a transaction when combined with other
// writes. Returns the resulting balance.
func creditTx(q execer, userID int64, amount int, reason string, taskID, rewardID *int64) (int, error) {
	if err := ensureBalanceRow(q, userID); err != nil {
		return 0, err
	}
	if _, err := q.Exec(
		`UPDATE point_balances SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		amount, userID,
	); err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return appendHistory(q, userID, amount, model.HistoryTypeAdd, reason, taskID, rewardID)
}

// debitTx subtracts amount, guarded so the balance can never go negative.
// The conditional UPDATE is the atomic read-modify-write: concurrent
// debits serialize on the row and the losing one sees RowsAffected == 0.
func debitTx(q execer, userID int64, amount int, reason string, taskID, rewardID *int64) (int, error) {
	if err := ensureBalanceRow(q, userID); err != nil {
		return 0, err
	}
	result, err := q.Exec(
		`UPDATE point_balances SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrInsufficientBalance
	}
	return appendHistory(q, userID, amount, model.HistoryTypeDeduct, reason, taskID, rewardID)
}

func appendHistory(q execer, userID int64, amount int, typ, reason string, taskID, rewardID *int64) (int, error) {
	var balance int
	if err := q.QueryRow(`SELECT balance FROM point_balances WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read resulting balance: %w", err)
	}
	if _, err := q.Exec(
		`INSERT INTO point_history (user_id, amount, type, reason, task_id, reward_id, resulting_balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, amount, typ, reason, nullID(taskID), nullID(rewardID), balance,
	); err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return balance, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Credit adds points to a user's balance.
func (s *PointStore) Credit(userID int64, amount int, reason string, taskID *int64) (*model.PointBalance, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := creditTx(tx, userID, amount, reason, taskID, nil); err != nil {
		return nil, err
	}
	// Read the result before commit so a concurrent mutation cannot leak in.
	b, err := scanBalance(tx.QueryRow(`SELECT `+balanceCols+` FROM point_balances WHERE user_id = ?`, userID))
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return b, nil
}

// Debit removes points from a user's balance. Returns
// ErrInsufficientBalance, with nothing written, when the balance is short.
func (s *PointStore) Debit(userID int64, amount int, reason string, rewardID *int64) (*model.PointBalance, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := debitTx(tx, userID, amount, reason, nil, rewardID); err != nil {
		return nil, err
	}
	b, err := scanBalance(tx.QueryRow(`SELECT `+balanceCols+` FROM point_balances WHERE user_id = ?`, userID))
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit debit: %w", err)
	}
	return b, nil
}

const historyCols = `id, user_id, amount, type, reason, task_id, reward_id, resulting_balance, created_at`

func scanHistoryEntry(scanner interface{ Scan(...any) error }) (*model.PointHistoryEntry, error) {
	var e model.PointHistoryEntry
	var taskID, rewardID sql.NullInt64
	err := scanner.Scan(&e.ID, &e.UserID, &e.Amount, &e.Type, &e.Reason, &taskID, &rewardID, &e.ResultingBalance, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		e.TaskID = &taskID.Int64
	}
	if rewardID.Valid {
		e.RewardID = &rewardID.Int64
	}
	return &e, nil
}

// History returns the user's point history, newest first.
func (s *PointStore) History(userID int64) ([]model.PointHistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+historyCols+` FROM point_history WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []model.PointHistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Leaderboard returns every family member with their current balance,
// highest first. Members without a balance row count as zero.
func (s *PointStore) Leaderboard(familyID int64) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.username, u.full_name, u.role, COALESCE(pb.balance, 0)
		 FROM users u
		 LEFT JOIN point_balances pb ON pb.user_id = u.id
		 WHERE u.family_id = ?
		 ORDER BY COALESCE(pb.balance, 0) DESC, u.username ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FullName, &e.Role, &e.Points); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

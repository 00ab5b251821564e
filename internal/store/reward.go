package store

import (
	"database/sql"
	"fmt"

	"github.com/sorenhale/chorebank/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var stock sql.NullInt64

	err := scanner.Scan(
		&r.ID, &r.Name, &r.Description, &r.Points, &stock, &r.ImageURL,
		&r.FamilyID, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stock.Valid {
		n := int(stock.Int64)
		r.Stock = &n
	}
	return &r, nil
}

const rewardCols = `id, name, description, points, stock, image_url, family_id, created_by, created_at, updated_at`

func nullStock(stock *int) sql.NullInt64 {
	if stock == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*stock), Valid: true}
}

func (s *RewardStore) Create(name, description string, points int, stock *int, imageURL string, familyID, createdBy int64) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (name, description, points, stock, image_url, family_id, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, description, points, nullStock(stock), imageURL, familyID, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByFamily(familyID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT `+rewardCols+` FROM rewards WHERE family_id = ? ORDER BY name ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, name, description string, points int, stock *int, imageURL string) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, description = ?, points = ?, stock = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, points, nullStock(stock), imageURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.Redemption, error) {
	var r model.Redemption
	err := scanner.Scan(
		&r.ID, &r.RewardID, &r.UserID, &r.FamilyID, &r.RewardName,
		&r.PointsCost, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, user_id, family_id, reward_name, points_cost, status, created_at, updated_at`

// Redeem exchanges the user's points for one unit of the reward inside a
// single transaction: conditional stock decrement, then balance debit,
// then the pending redemption record. Any guard failure rolls back the
// whole exchange, so a losing racer's balance and the stock are untouched.
// Returns (nil, nil) when the reward does not exist.
func (s *RewardStore) Redeem(rewardID, userID int64) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var name string
	var points int
	var stock sql.NullInt64
	var familyID int64
	err = tx.QueryRow(`SELECT name, points, stock, family_id FROM rewards WHERE id = ?`, rewardID).
		Scan(&name, &points, &stock, &familyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reward: %w", err)
	}

	// Stock first, debit second: a reward that turns out to be out of
	// stock must never cost the caller points.
	if stock.Valid {
		result, err := tx.Exec(
			`UPDATE rewards SET stock = stock - 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND stock > 0`,
			rewardID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil, ErrOutOfStock
		}
	}

	if _, err := debitTx(tx, userID, points, name, nil, &rewardID); err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO redemptions (reward_id, user_id, family_id, reward_name, points_cost)
		 VALUES (?, ?, ?, ?, ?)`,
		rewardID, userID, familyID, name, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redeem: %w", err)
	}
	return s.GetRedemptionByID(id)
}

func (s *RewardStore) GetRedemptionByID(id int64) (*model.Redemption, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// UpdateRedemptionStatus resolves a pending redemption. Only
// pending -> approved and pending -> rejected are allowed; anything else
// returns ErrInvalidTransition. Rejection refunds the debit and restores
// tracked stock in the same transaction.
func (s *RewardStore) UpdateRedemptionStatus(id int64, status string) (*model.Redemption, error) {
	if status != model.RedemptionApproved && status != model.RedemptionRejected {
		return nil, ErrInvalidTransition
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rewardID, userID int64
	var rewardName string
	var pointsCost int
	err = tx.QueryRow(`SELECT reward_id, user_id, reward_name, points_cost FROM redemptions WHERE id = ?`, id).
		Scan(&rewardID, &userID, &rewardName, &pointsCost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load redemption: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE redemptions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'pending'`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update redemption status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}

	if status == model.RedemptionRejected {
		if _, err := creditTx(tx, userID, pointsCost, "refund: "+rewardName, nil, &rewardID); err != nil {
			return nil, err
		}
		// Restock only tracked rewards; the catalog entry may be gone.
		if _, err := tx.Exec(
			`UPDATE rewards SET stock = stock + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND stock IS NOT NULL`,
			rewardID,
		); err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return s.GetRedemptionByID(id)
}

// ListRedemptionsByUser returns a user's redemptions, newest first.
func (s *RewardStore) ListRedemptionsByUser(userID int64) ([]model.Redemption, error) {
	return s.listRedemptions(
		`SELECT `+redemptionCols+` FROM redemptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// ListRedemptionsByFamily returns every redemption in a family, newest first.
func (s *RewardStore) ListRedemptionsByFamily(familyID int64) ([]model.Redemption, error) {
	return s.listRedemptions(
		`SELECT `+redemptionCols+` FROM redemptions WHERE family_id = ? ORDER BY created_at DESC, id DESC`,
		familyID,
	)
}

func (s *RewardStore) listRedemptions(query string, arg int64) ([]model.Redemption, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

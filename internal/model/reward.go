package model

import "time"

// Reward is a family-scoped catalog entry. Stock is nil for unlimited
// rewards; a non-nil value is decremented on each successful redemption.
type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	Stock       *int      `json:"stock"`
	ImageURL    string    `json:"image_url"`
	FamilyID    int64     `json:"family_id"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)

// Redemption snapshots the reward name and cost so history stays stable
// when the catalog entry is later edited or deleted.
type Redemption struct {
	ID         int64     `json:"id"`
	RewardID   int64     `json:"reward_id"`
	UserID     int64     `json:"user_id"`
	FamilyID   int64     `json:"family_id"`
	RewardName string    `json:"reward_name"`
	PointsCost int       `json:"points_cost"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

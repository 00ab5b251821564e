package model

import "time"

const (
	HistoryTypeAdd    = "add"
	HistoryTypeDeduct = "deduct"
)

type PointBalance struct {
	UserID    int64     `json:"user_id"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointHistoryEntry is an append-only record of one balance change.
// Amount is always positive; Type says which direction it went.
type PointHistoryEntry struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Amount           int       `json:"amount"`
	Type             string    `json:"type"`
	Reason           string    `json:"reason"`
	TaskID           *int64    `json:"task_id,omitempty"`
	RewardID         *int64    `json:"reward_id,omitempty"`
	ResultingBalance int       `json:"resulting_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

type LeaderboardEntry struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Points   int    `json:"points"`
}

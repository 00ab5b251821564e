package task

import "github.com/sorenhale/chorebank/internal/model"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known task status.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// transitions maps each status to the statuses reachable from it.
// Approved is terminal; a rejected task may be reopened by a parent.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted},
	StatusCompleted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusPending},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Allowed reports whether the given actor may request this transition.
// Only the assignee may complete a pending task; every other transition
// belongs to parents.
func Allowed(from, to Status, role string, isAssignee bool) bool {
	if !CanTransition(from, to) {
		return false
	}
	if to == StatusCompleted {
		return isAssignee
	}
	return role == model.RoleParent
}

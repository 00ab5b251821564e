package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sorenhale/chorebank/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var dueDate sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Points, &t.AssignedTo, &t.CreatedBy,
		&t.FamilyID, &dueDate, &t.Status, &t.Comment, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

const taskCols = `id, title, description, points, assigned_to, created_by, family_id, due_date, status, comment, created_at, updated_at`

func (s *TaskStore) Create(title, description string, points int, assignedTo, createdBy, familyID int64, dueDate *time.Time) (*model.Task, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: *dueDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, points, assigned_to, created_by, family_id, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, description, points, assignedTo, createdBy, familyID, due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByFamily(familyID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY created_at DESC, id DESC`, familyID)
}

func (s *TaskStore) ListByAssignee(userID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE assigned_to = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (s *TaskStore) list(query string, arg int64) ([]model.Task, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Delete removes a task permanently. Points already credited stay credited.
func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Complete marks a pending task completed. Returns ErrInvalidTransition if
// the task is not currently pending.
func (s *TaskStore) Complete(id int64, comment string) (*model.Task, error) {
	return s.transition(id, "pending", "completed", comment)
}

// Reject moves a completed task to rejected without crediting points.
func (s *TaskStore) Reject(id int64, comment string) (*model.Task, error) {
	return s.transition(id, "completed", "rejected", comment)
}

// Reopen returns a rejected task to pending so it can be attempted again.
func (s *TaskStore) Reopen(id int64, comment string) (*model.Task, error) {
	return s.transition(id, "rejected", "pending", comment)
}

func (s *TaskStore) transition(id int64, from, to, comment string) (*model.Task, error) {
	result, err := s.db.Exec(
		`UPDATE tasks SET status = ?, comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, comment, id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}
	return s.GetByID(id)
}

// Approve moves a completed task to approved and credits the assignee
// task.points in the same transaction. The status guard ensures a task is
// credited at most once; a repeated approval returns ErrInvalidTransition.
func (s *TaskStore) Approve(id int64, comment string) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var title string
	var points int
	var assignedTo int64
	err = tx.QueryRow(`SELECT title, points, assigned_to FROM tasks WHERE id = ?`, id).
		Scan(&title, &points, &assignedTo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE tasks SET status = 'approved', comment = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'completed'`,
		comment, id,
	)
	if err != nil {
		return nil, fmt.Errorf("approve task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}

	if _, err := creditTx(tx, assignedTo, points, title, &id, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve: %w", err)
	}
	return s.GetByID(id)
}

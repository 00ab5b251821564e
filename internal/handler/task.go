package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sorenhale/chorebank/internal/auth"
	"github.com/sorenhale/chorebank/internal/model"
	"github.com/sorenhale/chorebank/internal/store"
	"github.com/sorenhale/chorebank/internal/task"
	"github.com/sorenhale/chorebank/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	userStore *store.UserStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, userStore: us, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type taskCreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	AssignedTo  int64      `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// Create adds a task for a family member. Parent only.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Points <= 0 {
		respondError(w, http.StatusBadRequest, "points must be positive")
		return
	}

	assignee, err := h.userStore.GetByID(req.AssignedTo)
	if err != nil {
		h.logger.Error("resolve assignee", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	if assignee == nil {
		respondError(w, http.StatusNotFound, "assignee not found")
		return
	}

	id, _ := auth.FromContext(r.Context())
	if assignee.FamilyID != id.FamilyID {
		respondError(w, http.StatusForbidden, "assignee is not in your family")
		return
	}

	created, err := h.taskStore.Create(req.Title, req.Description, req.Points, req.AssignedTo, id.UserID, id.FamilyID, req.DueDate)
	if err != nil {
		h.logger.Error("create task", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(id.FamilyID, websocket.NewMessage("task", "created", created.ID, nil))
	respondMessage(w, http.StatusCreated, "task created", created)
}

func (h *TaskHandler) ListFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r, "familyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	if familyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "not your family")
		return
	}

	tasks, err := h.taskStore.ListByFamily(familyID)
	if err != nil {
		h.logger.Error("list family tasks", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	respondData(w, http.StatusOK, tasks)
}

// ListUser returns tasks assigned to the given user (defaults to the caller).
func (h *TaskHandler) ListUser(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if raw := r.PathValue("userId"); raw != "" {
		id, err := parseIDParam(r, "userId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = id
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		h.logger.Error("resolve user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "user is not in your family")
		return
	}

	tasks, err := h.taskStore.ListByAssignee(userID)
	if err != nil {
		h.logger.Error("list user tasks", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	respondData(w, http.StatusOK, tasks)
}

type taskStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// UpdateStatus drives the task state machine. The child assignee completes
// their own pending task; a parent approves, rejects, or reopens. Approval
// credits the assignee exactly once.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r, "taskId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	to := task.Status(req.Status)
	if !task.Valid(to) {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	existing, err := h.taskStore.GetByID(taskID)
	if err != nil {
		h.logger.Error("get task", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	id, _ := auth.FromContext(r.Context())
	if existing.FamilyID != id.FamilyID {
		respondError(w, http.StatusForbidden, "task is not in your family")
		return
	}

	from := task.Status(existing.Status)
	isAssignee := existing.AssignedTo == id.UserID
	if !task.Allowed(from, to, id.Role, isAssignee) {
		// Distinguish "you may not" from "the task may not".
		if task.CanTransition(from, to) {
			respondError(w, http.StatusForbidden, "not permitted for your role")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid status transition")
		return
	}

	// The store re-checks the current status inside its own statement or
	// transaction, so concurrent updates cannot double-apply.
	var updated *model.Task
	switch to {
	case task.StatusCompleted:
		updated, err = h.taskStore.Complete(taskID, req.Comment)
	case task.StatusApproved:
		updated, err = h.taskStore.Approve(taskID, req.Comment)
	case task.StatusRejected:
		updated, err = h.taskStore.Reject(taskID, req.Comment)
	case task.StatusPending:
		updated, err = h.taskStore.Reopen(taskID, req.Comment)
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		respondError(w, http.StatusBadRequest, "invalid status transition")
		return
	}
	if err != nil {
		h.logger.Error("update task status", "error", err, "task_id", taskID, "status", to)
		respondError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	h.broadcast(id.FamilyID, websocket.NewMessage("task", string(to), taskID, nil))
	if to == task.StatusApproved {
		h.broadcast(id.FamilyID, websocket.NewMessage("points", "credited", existing.AssignedTo, nil))
	}
	respondMessage(w, http.StatusOK, "task status updated", updated)
}

// Delete removes a task permanently. Parent only; credited points are not
// reversed.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r, "taskId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	existing, err := h.taskStore.GetByID(taskID)
	if err != nil {
		h.logger.Error("get task", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	if existing.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "task is not in your family")
		return
	}

	if err := h.taskStore.Delete(taskID); err != nil {
		h.logger.Error("delete task", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("task", "deleted", taskID, nil))
	respondMessage(w, http.StatusOK, "task deleted", nil)
}

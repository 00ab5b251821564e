package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sorenhale/chorebank/internal/auth"
	"github.com/sorenhale/chorebank/internal/model"
	"github.com/sorenhale/chorebank/internal/store"
	"github.com/sorenhale/chorebank/internal/websocket"
)

type PointHandler struct {
	pointStore *store.PointStore
	userStore  *store.UserStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewPointHandler(ps *store.PointStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *PointHandler {
	return &PointHandler{pointStore: ps, userStore: us, hub: hub, logger: logger}
}

func (h *PointHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

// targetUser resolves the optional {userId} path segment, defaulting to the
// caller, and confirms the target belongs to the caller's family.
func (h *PointHandler) targetUser(w http.ResponseWriter, r *http.Request) *model.User {
	userID := auth.UserID(r.Context())
	if raw := r.PathValue("userId"); raw != "" {
		id, err := parseIDParam(r, "userId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return nil
		}
		userID = id
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		h.logger.Error("resolve user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return nil
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return nil
	}
	if user.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "user is not in your family")
		return nil
	}
	return user
}

func (h *PointHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := h.targetUser(w, r)
	if user == nil {
		return
	}

	balance, err := h.pointStore.GetBalance(user.ID)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	respondData(w, http.StatusOK, balance)
}

type pointChangeRequest struct {
	UserID int64  `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// decodeChange validates a manual credit/deduct request and confirms the
// target is a family member.
func (h *PointHandler) decodeChange(w http.ResponseWriter, r *http.Request) (*pointChangeRequest, bool) {
	var req pointChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return nil, false
	}

	user, err := h.userStore.GetByID(req.UserID)
	if err != nil {
		h.logger.Error("resolve user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return nil, false
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	if user.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "user is not in your family")
		return nil, false
	}
	return &req, true
}

// Add manually credits points to a family member. Parent only.
func (h *PointHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChange(w, r)
	if !ok {
		return
	}

	balance, err := h.pointStore.Credit(req.UserID, req.Amount, req.Reason, nil)
	if err != nil {
		h.logger.Error("credit points", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to add points")
		return
	}

	h.broadcast(auth.FamilyID(r.Context()), websocket.NewMessage("points", "credited", req.UserID, nil))
	respondMessage(w, http.StatusOK, "points added", balance)
}

// Deduct manually removes points from a family member. Parent only.
func (h *PointHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChange(w, r)
	if !ok {
		return
	}

	balance, err := h.pointStore.Debit(req.UserID, req.Amount, req.Reason, nil)
	if errors.Is(err, store.ErrInsufficientBalance) {
		respondError(w, http.StatusBadRequest, "insufficient points")
		return
	}
	if err != nil {
		h.logger.Error("debit points", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to deduct points")
		return
	}

	h.broadcast(auth.FamilyID(r.Context()), websocket.NewMessage("points", "debited", req.UserID, nil))
	respondMessage(w, http.StatusOK, "points deducted", balance)
}

// History returns a user's point history, newest first. Children may only
// see their own.
func (h *PointHandler) History(w http.ResponseWriter, r *http.Request) {
	user := h.targetUser(w, r)
	if user == nil {
		return
	}
	if !auth.CanActOn(r.Context(), user.ID) {
		respondError(w, http.StatusForbidden, "cannot view another user's history")
		return
	}

	entries, err := h.pointStore.History(user.ID)
	if err != nil {
		h.logger.Error("list history", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	if entries == nil {
		entries = []model.PointHistoryEntry{}
	}
	respondData(w, http.StatusOK, entries)
}

func (h *PointHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r, "familyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	if familyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "not your family")
		return
	}

	entries, err := h.pointStore.Leaderboard(familyID)
	if err != nil {
		h.logger.Error("leaderboard", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	respondData(w, http.StatusOK, entries)
}

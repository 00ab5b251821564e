package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sorenhale/chorebank/internal/auth"
	"github.com/sorenhale/chorebank/internal/model"
	"github.com/sorenhale/chorebank/internal/store"
	"github.com/sorenhale/chorebank/internal/websocket"
)

type RewardHandler struct {
	rewardStore *store.RewardStore
	userStore   *store.UserStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, userStore: us, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type rewardCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Stock       *int   `json:"stock"`
	ImageURL    string `json:"image_url"`
}

// Create adds a reward to the family catalog. Parent only.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Points <= 0 {
		respondError(w, http.StatusBadRequest, "points must be positive")
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "stock must be >= 0")
		return
	}

	id, _ := auth.FromContext(r.Context())
	reward, err := h.rewardStore.Create(req.Name, req.Description, req.Points, req.Stock, req.ImageURL, id.FamilyID, id.UserID)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(id.FamilyID, websocket.NewMessage("reward", "created", reward.ID, nil))
	respondMessage(w, http.StatusCreated, "reward created", reward)
}

func (h *RewardHandler) ListFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r, "familyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	if familyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "not your family")
		return
	}

	rewards, err := h.rewardStore.ListByFamily(familyID)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	respondData(w, http.StatusOK, rewards)
}

type rewardUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Points      *int    `json:"points"`
	Stock       *int    `json:"stock"` // negative clears tracking (unlimited)
	ImageURL    *string `json:"image_url"`
}

// Update edits catalog fields; omitted fields keep their values. Parent only.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	rewardID, err := parseIDParam(r, "rewardId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reward id")
		return
	}

	existing, ok := h.familyReward(w, r, rewardID)
	if !ok {
		return
	}

	var req rewardUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := existing.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(w, http.StatusBadRequest, "name is required")
			return
		}
	}
	description := existing.Description
	if req.Description != nil {
		description = *req.Description
	}
	points := existing.Points
	if req.Points != nil {
		points = *req.Points
		if points <= 0 {
			respondError(w, http.StatusBadRequest, "points must be positive")
			return
		}
	}
	stock := existing.Stock
	if req.Stock != nil {
		if *req.Stock < 0 {
			stock = nil
		} else {
			stock = req.Stock
		}
	}
	imageURL := existing.ImageURL
	if req.ImageURL != nil {
		imageURL = *req.ImageURL
	}

	reward, err := h.rewardStore.Update(rewardID, name, description, points, stock, imageURL)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "updated", rewardID, nil))
	respondMessage(w, http.StatusOK, "reward updated", reward)
}

// Delete removes a catalog entry. Redemption records keep their snapshots.
// Parent only.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rewardID, err := parseIDParam(r, "rewardId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reward id")
		return
	}

	existing, ok := h.familyReward(w, r, rewardID)
	if !ok {
		return
	}

	if err := h.rewardStore.Delete(rewardID); err != nil {
		h.logger.Error("delete reward", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "deleted", rewardID, nil))
	respondMessage(w, http.StatusOK, "reward deleted", nil)
}

// Redeem spends the caller's points on a reward, producing a pending
// redemption for parental review.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	rewardID, err := parseIDParam(r, "rewardId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reward id")
		return
	}

	if _, ok := h.familyReward(w, r, rewardID); !ok {
		return
	}

	id, _ := auth.FromContext(r.Context())
	redemption, err := h.rewardStore.Redeem(rewardID, id.UserID)
	if errors.Is(err, store.ErrOutOfStock) {
		respondError(w, http.StatusBadRequest, "reward is out of stock")
		return
	}
	if errors.Is(err, store.ErrInsufficientBalance) {
		respondError(w, http.StatusBadRequest, "insufficient points")
		return
	}
	if err != nil {
		h.logger.Error("redeem reward", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}
	if redemption == nil {
		respondError(w, http.StatusNotFound, "reward not found")
		return
	}

	h.broadcast(id.FamilyID, websocket.NewMessage("redemption", "created", redemption.ID, nil))
	respondMessage(w, http.StatusOK, "reward redeemed", redemption)
}

type redemptionStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRedeemStatus approves or rejects a pending redemption. Parent only.
func (h *RewardHandler) UpdateRedeemStatus(w http.ResponseWriter, r *http.Request) {
	historyID, err := parseIDParam(r, "historyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid redemption id")
		return
	}

	var req redemptionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Status != model.RedemptionApproved && req.Status != model.RedemptionRejected {
		respondError(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	existing, err := h.rewardStore.GetRedemptionByID(historyID)
	if err != nil {
		h.logger.Error("get redemption", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load redemption")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "redemption not found")
		return
	}
	if existing.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "redemption is not in your family")
		return
	}

	updated, err := h.rewardStore.UpdateRedemptionStatus(historyID, req.Status)
	if errors.Is(err, store.ErrInvalidTransition) {
		respondError(w, http.StatusBadRequest, "redemption is already resolved")
		return
	}
	if err != nil {
		h.logger.Error("update redemption status", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update redemption")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "redemption not found")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("redemption", req.Status, historyID, nil))
	respondMessage(w, http.StatusOK, "redemption "+req.Status, updated)
}

// ListUserRedemptions returns redemptions for a user (default the caller).
// Children may only see their own.
func (h *RewardHandler) ListUserRedemptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if raw := r.PathValue("userId"); raw != "" {
		id, err := parseIDParam(r, "userId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = id
	}
	if !auth.CanActOn(r.Context(), userID) {
		respondError(w, http.StatusForbidden, "cannot view another user's redemptions")
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		h.logger.Error("resolve user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list redemptions")
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

	redemptions, err := h.rewardStore.ListRedemptionsByUser(userID)
	if err != nil {
		h.logger.Error("list redemptions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	respondData(w, http.StatusOK, redemptions)
}

// ListFamilyRedemptions returns the whole family's redemptions. Parent only.
func (h *RewardHandler) ListFamilyRedemptions(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r, "familyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	if familyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "not your family")
		return
	}

	redemptions, err := h.rewardStore.ListRedemptionsByFamily(familyID)
	if err != nil {
		h.logger.Error("list family redemptions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	respondData(w, http.StatusOK, redemptions)
}

// familyReward loads a reward and verifies family scope.
func (h *RewardHandler) familyReward(w http.ResponseWriter, r *http.Request, rewardID int64) (*model.Reward, bool) {
	reward, err := h.rewardStore.GetByID(rewardID)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load reward")
		return nil, false
	}
	if reward == nil {
		respondError(w, http.StatusNotFound, "reward not found")
		return nil, false
	}
	if reward.FamilyID != auth.FamilyID(r.Context()) {
		respondError(w, http.StatusForbidden, "reward is not in your family")
		return nil, false
	}
	return reward, true
}

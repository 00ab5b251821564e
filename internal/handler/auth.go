package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sorenhale/chorebank/internal/auth"
	"github.com/sorenhale/chorebank/internal/model"
	"github.com/sorenhale/chorebank/internal/store"
)

type AuthHandler struct {
	userStore *store.UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	FamilyID   int64  `json:"family_id"`
	FamilyName string `json:"family_name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		respondError(w, http.StatusBadRequest, "role must be parent or child")
		return
	}

	existing, err := h.userStore.GetByUsername(req.Username)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		respondError(w, http.StatusBadRequest, "username is already taken")
		return
	}

	// Joining an existing family requires a valid id; otherwise a new
	// family is started for this user.
	familyID := req.FamilyID
	if familyID != 0 {
		family, err := h.userStore.GetFamilyByID(familyID)
		if err != nil {
			h.logger.Error("register family lookup", "error", err)
			respondError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		if family == nil {
			respondError(w, http.StatusBadRequest, "family not found")
			return
		}
	} else {
		name := strings.TrimSpace(req.FamilyName)
		if name == "" {
			name = req.Username + "'s family"
		}
		family, err := h.userStore.CreateFamily(name)
		if err != nil {
			h.logger.Error("create family", "error", err)
			respondError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		familyID = family.ID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user, err := h.userStore.Create(req.Username, hash, strings.TrimSpace(req.FullName), req.Role, familyID)
	if err != nil {
		h.logger.Error("create user", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondMessage(w, http.StatusCreated, "registered", map[string]any{
		"token": token,
		"user":  user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	// Same response for unknown user and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("me lookup", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondData(w, http.StatusOK, user)
}

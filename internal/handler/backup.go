package handler

import (
	"log/slog"
	"net/http"

	"github.com/sorenhale/chorebank/internal/backup"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(manager *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: manager, logger: logger}
}

// RunNow triggers an immediate encrypted backup. Parent only.
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "backup is not configured")
		return
	}

	key, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		respondError(w, http.StatusInternalServerError, "backup failed")
		return
	}

	respondMessage(w, http.StatusOK, "backup complete", map[string]string{"key": key})
}

// Status reports the outcome of the most recent backup attempt.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.manager.Status())
}

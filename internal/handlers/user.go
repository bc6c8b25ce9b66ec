package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
)

// UserHandler serves the signed-in player's progress record.
type UserHandler struct {
	recorder *services.OutcomeRecorder
	logger   *zap.Logger
}

func NewUserHandler(recorder *services.OutcomeRecorder, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		recorder: recorder,
		logger:   logger,
	}
}

func (h *UserHandler) GetProgress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	progress, err := h.recorder.Progress(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load progress", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load progress"})
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *UserHandler) RecordOutcome(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	var outcome models.Outcome
	if err := c.ShouldBindJSON(&outcome); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid outcome payload"})
		return
	}
	if err := outcome.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	receipt, err := h.recorder.RecordOutcome(c.Request.Context(), userID, c.GetString("wallet_address"), outcome)
	if err != nil {
		h.logger.Error("failed to record outcome", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to record game outcome"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (h *UserHandler) ResetProgress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	if err := h.recorder.ResetProgress(c.Request.Context(), userID); err != nil {
		h.logger.Error("failed to reset progress", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to reset progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress cleared"})
}

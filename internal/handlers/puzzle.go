package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
)

type PuzzleHandler struct {
	registry *services.PuzzleRegistry
	logger   *zap.Logger
}

func NewPuzzleHandler(registry *services.PuzzleRegistry, logger *zap.Logger) *PuzzleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PuzzleHandler{
		registry: registry,
		logger:   logger,
	}
}

func (h *PuzzleHandler) NewPuzzle(c *gin.Context) {
	info, err := h.registry.Issue(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to issue puzzle", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error generating puzzle"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *PuzzleHandler) SubmitGuess(c *gin.Context) {
	var req models.SubmitGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PuzzleID == "" || req.GuessString == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request: puzzleId and guessString are required.",
		})
		return
	}

	outcome, err := h.registry.CheckGuess(c.Request.Context(), req.PuzzleID, *req.GuessString)
	if errors.Is(err, services.ErrPuzzleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to check guess",
			zap.String("puzzle_id", req.PuzzleID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error checking guess"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

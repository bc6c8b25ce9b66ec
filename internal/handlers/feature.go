package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mathler-backend/internal/models"
	"mathler-backend/internal/services"
)

// FeatureHandler serves the standalone achievement mint. Finished games go
// through the progress endpoints, which mint on a first win by themselves.
type FeatureHandler struct {
	minter services.Minter
	logger *zap.Logger
}

func NewFeatureHandler(minter services.Minter, logger *zap.Logger) *FeatureHandler {
	if minter == nil {
		minter = services.DisabledMinter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeatureHandler{
		minter: minter,
		logger: logger,
	}
}

func (h *FeatureHandler) MintFirstWinNFT(c *gin.Context) {
	var req models.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MintResponse{
			Success: false,
			Message: "userWalletAddress and userId are required.",
		})
		return
	}

	if !models.IsWalletAddress(req.UserWalletAddress) {
		c.JSON(http.StatusBadRequest, models.MintResponse{
			Success: false,
			Message: "userWalletAddress is not a valid address.",
		})
		return
	}

	result, err := h.minter.MintFirstWin(c.Request.Context(), req.UserWalletAddress, req.UserID)
	if err != nil {
		h.logger.Error("first win mint failed",
			zap.String("user_id", req.UserID),
			zap.String("wallet", req.UserWalletAddress),
			zap.Error(err))

		message := err.Error()
		if errors.Is(err, services.ErrAlreadyAwarded) {
			message = "First Win NFT already awarded to this address (on-chain check)."
		}
		c.JSON(http.StatusInternalServerError, models.MintResponse{
			Success: false,
			Message: message,
		})
		return
	}

	c.JSON(http.StatusOK, models.MintResponse{
		Success:         true,
		Message:         "First Win NFT minted successfully!",
		TransactionHash: result.TransactionHash,
		TokenID:         result.TokenID,
	})
}

package handler

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleStart handles /start command and the back buttons
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	ctx, cancel := h.requestContext()
	defer cancel()

	// Ensure user exists in database
	if err := h.authService.EnsureUserExists(ctx, userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return c.Send(msgError)
	}

	// Check if authorized
	authorized, err := h.authService.IsAuthorized(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send(msgError)
	}

	h.ResetState(userID)
	if !authorized {
		return c.Send(msgAskPassword)
	}

	text := msgMainMenu
	if stats, err := h.statsService.Summary(ctx, userID); err == nil && stats.Total > 0 {
		text = formatDueLine(stats) + "\n\n" + msgMainMenu
	}

	return h.editOrSend(c, userID, text, mainMenuMarkup())
}

// handleCancel cancels current operation and resets state
func (h *Handler) handleCancel(c tele.Context) error {
	userID := c.Sender().ID

	h.ResetState(userID)

	return h.editOrSend(c, userID, msgMainMenu, mainMenuMarkup())
}

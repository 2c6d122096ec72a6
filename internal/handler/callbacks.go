package handler

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
// Otherwise, acknowledge callback and return error so caller can send new message
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// Already edited by another callback, nothing new to send
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback, acknowledging",
			zap.Int64("user_id", userID),
			zap.String("callback_id", c.Callback().ID),
		)
		_ = c.Respond()
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("callback_id", c.Callback().ID),
	)
	// Always acknowledge callback before sending new message
	if ackErr := c.Respond(); ackErr != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(ackErr))
	}
	return err
}

// editOrSend edits the message behind a callback, or sends a new one for commands
func (h *Handler) editOrSend(c tele.Context, userID int64, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() == nil {
		return c.Send(text, markup)
	}

	if err := c.Edit(text, markup); err != nil {
		if handleErr := h.handleEditError(err, c, userID); handleErr == nil {
			return nil
		}
		return c.Send(text, markup)
	}
	return c.Respond()
}

// respondAlert answers a callback with a popup, or sends text for commands
func respondAlert(c tele.Context, text string) error {
	if c.Callback() == nil {
		return c.Send(text)
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	// Clean data from all non-printable characters
	data := cleanCallbackData(callback.Data)
	h.logger.Debug("handleCallback: Processing callback",
		zap.String("data", data),
		zap.String("id", callback.ID),
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", c.Sender().ID),
	)

	// Static buttons whose Unique didn't get routed
	key := callback.Unique
	if key == "" {
		key = data
	}
	switch key {
	case btnViewDays.Unique, btnBackToDays.Unique:
		return h.handleViewDays(c)
	case btnAddWords.Unique:
		return h.handleAddWords(c)
	case btnReview.Unique:
		return h.handleReview(c)
	case btnStats.Unique:
		return h.handleStats(c)
	case btnExport.Unique:
		return h.handleExport(c)
	case btnShowAnswer.Unique:
		return h.handleShowAnswer(c)
	case btnDeleteCard.Unique:
		return h.handleDeleteCard(c)
	case btnEndReview.Unique:
		return h.handleEndReview(c)
	case btnResetConfirm.Unique:
		return h.handleResetConfirm(c)
	case btnCancel.Unique:
		return h.handleCancel(c)
	case btnBack.Unique, btnMainMenu.Unique:
		return h.handleStart(c)
	}

	// Dynamic buttons
	switch {
	case strings.HasPrefix(data, "page_"):
		return h.handlePagination(c, data)
	case strings.HasPrefix(data, "day_"):
		return h.handleDaySelection(c, data)
	case strings.HasPrefix(data, "rate_"):
		return h.handleRate(c, data)
	case strings.HasPrefix(data, actionEditCard+"_"):
		return h.handleLibraryEdit(c, data)
	case strings.HasPrefix(data, actionDeleteCard+"_"):
		return h.handleLibraryDelete(c, data)
	}

	// If it's not handled, acknowledge it anyway
	h.logger.Warn("Unhandled callback in handleCallback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
	)
	return c.Respond()
}

package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// SendReminder tells a user how many cards are waiting for today
func (h *Handler) SendReminder(userID int64, due int) error {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnReview))

	text := fmt.Sprintf("⏰ ¡Hora de repasar! Tienes %d tarjetas pendientes para hoy.", due)
	if _, err := h.bot.Send(&tele.User{ID: userID}, text, markup); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", userID, err)
	}
	return nil
}

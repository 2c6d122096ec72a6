package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/repository"
	"flashcards/internal/service"
	"flashcards/internal/srs"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	msgDaysHeader = "📅 Días en los que añadiste palabras:\n\n"
	maxListBytes  = 3500

	// Telegram allows 100 buttons per keyboard
	maxCardButtonRows = 40
	maxCallbackData   = 64

	actionEditCard   = "cedit"
	actionDeleteCard = "cdel"
)

// daysMarkup builds the day buttons plus navigation for one page
func daysMarkup(days []domain.Day, page, totalPages int, now time.Time) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := []tele.Row{}

	for _, day := range days {
		btnText := fmt.Sprintf("%s (%d)", day.DisplayString(now), day.CardCount)
		rows = append(rows, markup.Row(markup.Data(btnText, "day_"+day.DateString())))
	}

	if totalPages > 1 {
		navRow := tele.Row{}
		if page > 1 {
			navRow = append(navRow, markup.Data("⬅️", fmt.Sprintf("page_%d", page-1)))
		}
		if page < totalPages {
			navRow = append(navRow, markup.Data("➡️", fmt.Sprintf("page_%d", page+1)))
		}
		if len(navRow) > 0 {
			rows = append(rows, navRow)
		}
	}

	rows = append(rows, markup.Row(btnBack))
	markup.Inline(rows...)
	return markup
}

// showDaysPage renders one page of the library
func (h *Handler) showDaysPage(c tele.Context, page int) error {
	userID := c.Sender().ID

	ctx, cancel := h.requestContext()
	defer cancel()

	days, totalPages, err := h.cardService.GetDaysList(ctx, userID, page)
	if err != nil {
		h.logger.Error("Failed to get days list", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, "Error al cargar los datos")
	}

	if len(days) == 0 {
		if page > 1 {
			return respondAlert(c, "No hay más días")
		}
		return respondAlert(c, "Todavía no tienes palabras guardadas")
	}

	now := h.cardService.Today()
	return h.editOrSend(c, userID, msgDaysHeader, daysMarkup(days, page, totalPages, now))
}

// handleViewDays shows list of days with cards
func (h *Handler) handleViewDays(c tele.Context) error {
	return h.showDaysPage(c, 1)
}

// handlePagination handles page navigation
func (h *Handler) handlePagination(c tele.Context, data string) error {
	page, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(data), "page_"))
	if err != nil || page < 1 {
		return c.Respond(&tele.CallbackResponse{Text: "Página no válida"})
	}
	return h.showDaysPage(c, page)
}

// formatDayCards lists the cards of one day with their current interval
func formatDayCards(cards []domain.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Palabras de ese día (%d):\n\n", len(cards))
	for i, card := range cards {
		// Telegram rejects messages over 4096 characters
		if b.Len() > maxListBytes {
			fmt.Fprintf(&b, "… y %d más\n", len(cards)-i)
			break
		}
		fmt.Fprintf(&b, "%d. %s — %s", i+1, card.Content.Front(), card.Content.Spanish)
		if card.State == domain.CardStateNew {
			b.WriteString(" · nueva")
		} else {
			fmt.Fprintf(&b, " · %s", srs.FormatStoredInterval(card.Interval))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cardActionData encodes a library action on one card as "<action>_<YYYYMMDD>_<id>"
func cardActionData(action, day, cardID string) (string, bool) {
	data := action + "_" + day + "_" + cardID
	return data, len(data) <= maxCallbackData
}

// parseCardActionData splits data built by cardActionData
func parseCardActionData(data, action string) (day, cardID string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(data), action+"_")
	if !ok {
		return "", "", fmt.Errorf("unexpected callback data %q", data)
	}
	day, cardID, ok = strings.Cut(rest, "_")
	if !ok || len(day) != len("20060102") || cardID == "" {
		return "", "", fmt.Errorf("malformed callback data %q", data)
	}
	if _, err := time.Parse("20060102", day); err != nil {
		return "", "", fmt.Errorf("malformed day in %q: %w", data, err)
	}
	return day, cardID, nil
}

// dayCardsMarkup adds edit and delete buttons for the listed cards
func dayCardsMarkup(day string, cards []domain.Card) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := []tele.Row{}

	for i, card := range cards {
		if len(rows) == maxCardButtonRows {
			break
		}
		editData, ok := cardActionData(actionEditCard, day, card.ID)
		if !ok {
			continue
		}
		deleteData, _ := cardActionData(actionDeleteCard, day, card.ID)
		rows = append(rows, markup.Row(
			markup.Data(fmt.Sprintf("✏️ %d", i+1), editData),
			markup.Data(fmt.Sprintf("🗑 %d", i+1), deleteData),
		))
	}

	rows = append(rows, markup.Row(btnBackToDays, btnMainMenu))
	markup.Inline(rows...)
	return markup
}

// showDay renders the cards of one day, or the day list once the day is empty
func (h *Handler) showDay(c tele.Context, userID int64, day string) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	cards, err := h.cardService.GetCardsByDate(ctx, userID, day)
	if err != nil {
		h.logger.Error("Failed to get cards by date", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Error al cargar"})
	}

	if len(cards) == 0 {
		return h.showDaysPage(c, 1)
	}

	return h.editOrSend(c, userID, formatDayCards(cards), dayCardsMarkup(day, cards))
}

// handleDaySelection shows cards for selected day
func (h *Handler) handleDaySelection(c tele.Context, data string) error {
	userID := c.Sender().ID

	dateStr := strings.TrimPrefix(strings.TrimSpace(data), "day_")
	h.logger.Debug("Handling day selection", zap.String("date", dateStr), zap.Int64("user_id", userID))

	ctx, cancel := h.requestContext()
	defer cancel()

	cards, err := h.cardService.GetCardsByDate(ctx, userID, dateStr)
	if err != nil {
		h.logger.Error("Failed to get cards by date", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Error al cargar"})
	}

	if len(cards) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "No hay palabras de ese día"})
	}

	return h.editOrSend(c, userID, formatDayCards(cards), dayCardsMarkup(dateStr, cards))
}

// handleLibraryDelete removes a card from the day view
func (h *Handler) handleLibraryDelete(c tele.Context, data string) error {
	userID := c.Sender().ID
	unlock := h.lockUser(userID)
	defer unlock()

	day, cardID, err := parseCardActionData(data, actionDeleteCard)
	if err != nil {
		h.logger.Warn("Invalid delete callback", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Botón no válido"})
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	err = h.cardService.DeleteCard(ctx, userID, cardID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.logger.Debug("Card already deleted", zap.String("card_id", cardID))
	case err != nil:
		h.logger.Error("Failed to delete card", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, "No se pudo eliminar la tarjeta")
	default:
		h.logger.Info("Card deleted from library",
			zap.Int64("user_id", userID),
			zap.String("card_id", cardID),
		)
	}

	return h.showDay(c, userID, day)
}

// handleLibraryEdit asks for the new text of a card
func (h *Handler) handleLibraryEdit(c tele.Context, data string) error {
	userID := c.Sender().ID

	day, cardID, err := parseCardActionData(data, actionEditCard)
	if err != nil {
		h.logger.Warn("Invalid edit callback", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Botón no válido"})
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	card, err := h.cardService.GetCard(ctx, userID, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return respondAlert(c, "Esta tarjeta ya no existe")
	}
	if err != nil {
		h.logger.Error("Failed to load card", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, "Error al cargar")
	}

	h.SetState(userID, &domain.StateData{
		State:      domain.StateEditingCard,
		EditCardID: cardID,
		EditDay:    day,
	})

	text := fmt.Sprintf("✏️ Editando: %s — %s\n\nEnvía la nueva versión como «palabra - traducción».",
		card.Content.Front(), card.Content.Spanish)
	return h.editOrSend(c, userID, text, cancelMarkup())
}

// mergeEdit applies an edited line to the current word. Fields the line
// cannot express are kept; the article is kept unless a new one is given.
func mergeEdit(current, edit domain.WordData) domain.WordData {
	merged := current
	merged.German = edit.German
	merged.Spanish = edit.Spanish
	if edit.Gender != nil {
		merged.Gender = edit.Gender
		merged.WordType = edit.WordType
	}
	return merged
}

// saveEdit stores the text sent while a card is being edited
func (h *Handler) saveEdit(c tele.Context, userID int64, state *domain.StateData, text string) error {
	edit, err := parseWordLine(text)
	if err != nil {
		return c.Send("Formato: «palabra - traducción», por ejemplo «der Hund - perro».", cancelMarkup())
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	card, err := h.cardService.GetCard(ctx, userID, state.EditCardID)
	if errors.Is(err, repository.ErrNotFound) {
		h.ResetState(userID)
		return c.Send("Esta tarjeta ya no existe.", mainMenuMarkup())
	}
	if err != nil {
		h.logger.Error("Failed to load card", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send(msgError)
	}

	updated, err := h.cardService.UpdateContent(ctx, userID, card.ID, mergeEdit(card.Content, edit))
	switch {
	case errors.Is(err, service.ErrInvalidWord):
		return c.Send("No se pudo guardar: "+err.Error(), cancelMarkup())
	case errors.Is(err, repository.ErrNotFound):
		h.ResetState(userID)
		return c.Send("Esta tarjeta ya no existe.", mainMenuMarkup())
	case err != nil:
		h.logger.Error("Failed to update card", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send(msgError)
	}

	h.ResetState(userID)

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("📅 Volver al día", "day_"+state.EditDay), btnMainMenu))
	return c.Send(fmt.Sprintf("✅ Tarjeta actualizada: %s — %s",
		updated.Content.Front(), updated.Content.Spanish), markup)
}

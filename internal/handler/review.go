package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"flashcards/internal/domain"
	"flashcards/internal/repository"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Telegram limits callback data to 64 bytes
const maxCallbackData = 64

var ratingLabels = map[domain.Rating]string{
	domain.RatingAgain: "🔁 Otra vez",
	domain.RatingHard:  "😓 Difícil",
	domain.RatingGood:  "🙂 Bien",
	domain.RatingEasy:  "😎 Fácil",
}

var errBadRateData = errors.New("malformed rating callback")

// rateData encodes a rating button. The card id is left out when it would not fit.
func rateData(rating domain.Rating, cardID string) string {
	data := fmt.Sprintf("rate_%d_%s", rating, cardID)
	// One byte goes to the \f prefix telebot adds
	if len(data)+1 > maxCallbackData {
		return fmt.Sprintf("rate_%d_", rating)
	}
	return data
}

// parseRateData decodes "rate_<n>_<card id>". An empty id means the current card.
func parseRateData(data string) (domain.Rating, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(data), "rate_")
	if !ok {
		return 0, "", errBadRateData
	}

	num, cardID, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", errBadRateData
	}

	rating := domain.Rating(n)
	if !rating.IsValid() {
		return 0, "", errBadRateData
	}
	return rating, cardID, nil
}

// formatCardFront renders the question side
func formatCardFront(card *domain.Card, position, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 Tarjeta %d/%d\n\n🇩🇪 %s", position, total, card.Content.Front())
	if card.Content.WordType != "" {
		fmt.Fprintf(&b, "\n(%s)", card.Content.WordType)
	}
	return b.String()
}

// formatCardBack renders the answer side with everything known about the word
func formatCardBack(card *domain.Card) string {
	w := card.Content

	var b strings.Builder
	fmt.Fprintf(&b, "🇩🇪 %s\n🇪🇸 %s", w.Front(), w.Spanish)

	if w.Plural != nil && *w.Plural != "" {
		fmt.Fprintf(&b, "\nPlural: %s", *w.Plural)
	}
	if w.PastTense != "" {
		fmt.Fprintf(&b, "\nPasado: %s", w.PastTense)
	}
	if len(w.Conjugations) > 0 {
		fmt.Fprintf(&b, "\nConjugación: %s", strings.Join(w.Conjugations, ", "))
	}
	if w.ExampleGerman != "" {
		fmt.Fprintf(&b, "\n\n💬 %s", w.ExampleGerman)
		if w.ExampleSpanish != "" {
			fmt.Fprintf(&b, "\n   %s", w.ExampleSpanish)
		}
	}
	if w.ConjugationLink != "" {
		fmt.Fprintf(&b, "\n\n🔗 %s", w.ConjugationLink)
	}
	return b.String()
}

// ratingMarkup shows the four rating buttons with their next interval
func ratingMarkup(cardID string, preview map[domain.Rating]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	btn := func(r domain.Rating) tele.Btn {
		return markup.Data(fmt.Sprintf("%s · %s", ratingLabels[r], preview[r]), rateData(r, cardID))
	}
	markup.Inline(
		markup.Row(btn(domain.RatingAgain), btn(domain.RatingHard)),
		markup.Row(btn(domain.RatingGood), btn(domain.RatingEasy)),
		markup.Row(btnDeleteCard, btnEndReview),
	)
	return markup
}

// handleReview starts a review session
func (h *Handler) handleReview(c tele.Context) error {
	userID := c.Sender().ID

	ctx, cancel := h.requestContext()
	defer cancel()

	cards, err := h.reviewService.StartSession(ctx, userID, h.sessionLimit)
	if err != nil {
		h.logger.Error("Failed to start review", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, msgError)
	}

	if len(cards) == 0 {
		h.ResetState(userID)
		return h.editOrSend(c, userID, "🎉 ¡Nada que repasar hoy!\n\n"+msgMainMenu, mainMenuMarkup())
	}

	queue := make([]string, len(cards))
	for i, card := range cards {
		queue[i] = card.ID
	}
	state := &domain.StateData{State: domain.StateReviewing, Queue: queue}
	h.SetState(userID, state)

	return h.showCard(c, userID, state)
}

// showCard shows the question side of the current card, skipping cards deleted meanwhile
func (h *Handler) showCard(c tele.Context, userID int64, state *domain.StateData) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	for {
		cardID := state.CurrentCardID()
		if cardID == "" {
			return h.finishSession(c, userID, state)
		}

		card, err := h.cardService.GetCard(ctx, userID, cardID)
		if errors.Is(err, repository.ErrNotFound) {
			state = h.advanceReview(userID, state)
			continue
		}
		if err != nil {
			h.logger.Error("Failed to load card", zap.Error(err), zap.String("card_id", cardID))
			return respondAlert(c, msgError)
		}

		markup := &tele.ReplyMarkup{}
		markup.Inline(
			markup.Row(btnShowAnswer),
			markup.Row(btnEndReview),
		)
		return h.editOrSend(c, userID, formatCardFront(card, state.Position+1, len(state.Queue)), markup)
	}
}

// advanceReview moves the session to the next card
func (h *Handler) advanceReview(userID int64, state *domain.StateData) *domain.StateData {
	next := *state
	next.Position++
	h.SetState(userID, &next)
	return &next
}

// finishSession ends the review and goes back to the menu
func (h *Handler) finishSession(c tele.Context, userID int64, state *domain.StateData) error {
	h.ResetState(userID)

	reviewed := state.Position
	if reviewed > len(state.Queue) {
		reviewed = len(state.Queue)
	}

	text := fmt.Sprintf("✅ ¡Sesión terminada! Tarjetas repasadas: %d", reviewed)

	ctx, cancel := h.requestContext()
	defer cancel()
	if stats, err := h.statsService.Summary(ctx, userID); err == nil && stats.Due > 0 {
		text += "\n" + formatDueLine(stats)
	}

	h.logger.Info("Review session finished",
		zap.Int64("user_id", userID),
		zap.Int("reviewed", reviewed),
		zap.Int("queued", len(state.Queue)),
	)

	return h.editOrSend(c, userID, text+"\n\n"+msgMainMenu, mainMenuMarkup())
}

// reviewState returns the running session, or nil after answering the callback
func (h *Handler) reviewState(c tele.Context, userID int64) *domain.StateData {
	state := h.GetState(userID)
	if state.State != domain.StateReviewing || state.CurrentCardID() == "" {
		_ = respondAlert(c, "No hay ninguna sesión de repaso activa. Pulsa «Repasar».")
		return nil
	}
	return state
}

// handleShowAnswer reveals the back of the card with the rating buttons
func (h *Handler) handleShowAnswer(c tele.Context) error {
	userID := c.Sender().ID

	state := h.reviewState(c, userID)
	if state == nil {
		return nil
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	card, err := h.cardService.GetCard(ctx, userID, state.CurrentCardID())
	if errors.Is(err, repository.ErrNotFound) {
		return h.showCard(c, userID, h.advanceReview(userID, state))
	}
	if err != nil {
		h.logger.Error("Failed to load card", zap.Error(err))
		return respondAlert(c, msgError)
	}

	text := fmt.Sprintf("🧠 Tarjeta %d/%d\n\n%s", state.Position+1, len(state.Queue), formatCardBack(card))
	return h.editOrSend(c, userID, text, ratingMarkup(card.ID, h.reviewService.Preview(*card)))
}

// handleRate records a rating and shows the next card
func (h *Handler) handleRate(c tele.Context, data string) error {
	userID := c.Sender().ID

	unlock := h.lockUser(userID)
	defer unlock()

	rating, cardID, err := parseRateData(data)
	if err != nil {
		h.logger.Warn("Bad rating callback", zap.String("data", data), zap.Int64("user_id", userID))
		return c.Respond()
	}

	state := h.reviewState(c, userID)
	if state == nil {
		return nil
	}

	current := state.CurrentCardID()
	if cardID == "" {
		cardID = current
	}
	// A second tap on an old message must not rate the next card
	if cardID != current {
		return c.Respond(&tele.CallbackResponse{Text: "Esta tarjeta ya está valorada"})
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	card, err := h.reviewService.Rate(ctx, userID, cardID, rating)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.logger.Debug("Rated card no longer exists", zap.String("card_id", cardID))
	case err != nil:
		h.logger.Error("Failed to rate card", zap.Error(err), zap.String("card_id", cardID))
		return respondAlert(c, "No se pudo guardar la valoración. Inténtalo de nuevo.")
	default:
		h.logger.Debug("Card rated",
			zap.Int64("user_id", userID),
			zap.String("card_id", card.ID),
			zap.Stringer("rating", rating),
		)
	}

	return h.showCard(c, userID, h.advanceReview(userID, state))
}

// handleDeleteCard removes the current card from the deck and moves on
func (h *Handler) handleDeleteCard(c tele.Context) error {
	userID := c.Sender().ID

	unlock := h.lockUser(userID)
	defer unlock()

	state := h.reviewState(c, userID)
	if state == nil {
		return nil
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	cardID := state.CurrentCardID()
	if err := h.cardService.DeleteCard(ctx, userID, cardID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to delete card", zap.Error(err), zap.String("card_id", cardID))
		return respondAlert(c, msgError)
	}

	h.logger.Info("Card deleted", zap.Int64("user_id", userID), zap.String("card_id", cardID))

	// Drop it from the queue so it doesn't count as reviewed
	next := *state
	next.Queue = append(append([]string(nil), state.Queue[:state.Position]...), state.Queue[state.Position+1:]...)
	h.SetState(userID, &next)

	return h.showCard(c, userID, &next)
}

// handleEndReview stops the session early
func (h *Handler) handleEndReview(c tele.Context) error {
	userID := c.Sender().ID

	state := h.GetState(userID)
	if state.State != domain.StateReviewing {
		return h.handleStart(c)
	}
	return h.finishSession(c, userID, state)
}

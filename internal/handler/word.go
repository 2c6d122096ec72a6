package handler

import (
	"errors"
	"fmt"
	"strings"

	"flashcards/internal/domain"
	"flashcards/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Separators accepted between a word and its translation, tried in order
var wordSeparators = []string{" — ", " – ", " - ", "=", "\t", ";"}

var errNoTranslation = errors.New("expected «palabra - traducción»")

// splitWordLine splits "der Hund - perro" into its two sides
func splitWordLine(line string) (string, string, bool) {
	for _, sep := range wordSeparators {
		if i := strings.Index(line, sep); i >= 0 {
			return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+len(sep):]), true
		}
	}
	return "", "", false
}

// parseGerman splits a leading article off a German noun
func parseGerman(text string) domain.WordData {
	text = strings.TrimSpace(text)
	if article, rest, ok := strings.Cut(text, " "); ok {
		switch a := strings.ToLower(article); a {
		case "der", "die", "das":
			return domain.WordData{
				German:   strings.TrimSpace(rest),
				Gender:   &a,
				WordType: domain.WordTypeNoun,
			}
		}
	}
	return domain.WordData{German: text}
}

// parseWordLine turns "der Hund - perro" into word data
func parseWordLine(line string) (domain.WordData, error) {
	german, spanish, ok := splitWordLine(line)
	if !ok || german == "" || spanish == "" {
		return domain.WordData{}, errNoTranslation
	}
	w := parseGerman(german)
	w.Spanish = spanish
	return w, nil
}

// handleText handles all text messages based on state
func (h *Handler) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	// Ignore commands (starting with /)
	if strings.HasPrefix(text, "/") {
		return nil
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	// Ensure user exists
	if err := h.authService.EnsureUserExists(ctx, userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return nil
	}

	// Check authorization first
	authorized, err := h.authService.IsAuthorized(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send(msgError)
	}

	// If not authorized, check password
	if !authorized {
		if h.authService.CheckPassword(text) {
			if err := h.authService.AuthorizeUser(ctx, userID); err != nil {
				h.logger.Error("Failed to authorize user", zap.Error(err))
				return c.Send(msgError)
			}

			h.logger.Info("User authorized", zap.Int64("user_id", userID))
			h.ResetState(userID)
			return c.Send("✅ ¡Acceso concedido!\n\n"+msgMainMenu, mainMenuMarkup())
		}

		return c.Send(msgWrongPass)
	}

	// User is authorized, handle based on state
	state := h.GetState(userID)

	switch state.State {
	case domain.StateReviewing:
		return c.Send("Estás en una sesión de repaso. Usa los botones o pulsa «Terminar».")

	case domain.StateEditingCard:
		return h.saveEdit(c, userID, state, text)

	case domain.StateWaitingTranslation:
		word := parseGerman(state.CurrentWord)
		word.Spanish = text
		if err := h.saveWord(c, userID, word); err != nil {
			return err
		}
		// Reset to waiting for next word
		h.SetState(userID, &domain.StateData{State: domain.StateWaitingWord})
		return nil

	default:
		// A full "word - translation" line is saved right away
		if word, err := parseWordLine(text); err == nil {
			if err := h.saveWord(c, userID, word); err != nil {
				return err
			}
			h.SetState(userID, &domain.StateData{State: domain.StateWaitingWord})
			return nil
		}

		h.SetState(userID, &domain.StateData{
			State:       domain.StateWaitingTranslation,
			CurrentWord: text,
		})

		return c.Send(msgAskTranslate, cancelMarkup())
	}
}

func (h *Handler) saveWord(c tele.Context, userID int64, word domain.WordData) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	card, err := h.cardService.AddWord(ctx, userID, word)
	if errors.Is(err, service.ErrInvalidWord) {
		return c.Send("No se pudo guardar: " + err.Error())
	}
	if err != nil {
		h.logger.Error("Failed to save word",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return c.Send("No se pudo guardar la palabra. Inténtalo de nuevo.")
	}

	h.logger.Info("Word saved",
		zap.Int64("user_id", userID),
		zap.String("card_id", card.ID),
	)

	return c.Send(fmt.Sprintf("✅ Guardado: %s — %s\n\nEnvía la siguiente palabra o vuelve con /start",
		card.Content.Front(), card.Content.Spanish))
}

// handleAddWords starts the word-then-translation flow
func (h *Handler) handleAddWords(c tele.Context) error {
	userID := c.Sender().ID
	h.SetState(userID, &domain.StateData{State: domain.StateWaitingWord})

	text := msgAskWord + "\n\nTambién puedes enviar «palabra - traducción» en un mensaje, " +
		"usar /add con una palabra por línea o subir un archivo .xlsx, .csv o .json."
	return h.editOrSend(c, userID, text, cancelMarkup())
}

// handleAddCommand handles "/add word - translation", one pair per line
func (h *Handler) handleAddCommand(c tele.Context) error {
	userID := c.Sender().ID
	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Send("Uso: /add der Hund - perro\nPuedes poner una palabra por línea.")
	}

	var words []domain.WordData
	var bad []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		w, err := parseWordLine(line)
		if err != nil {
			bad = append(bad, line)
			continue
		}
		words = append(words, w)
	}

	if len(words) == 1 && len(bad) == 0 {
		return h.saveWord(c, userID, words[0])
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	result, err := h.cardService.AddWords(ctx, userID, words)
	if err != nil {
		h.logger.Error("Failed to add words", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send(msgError)
	}

	text := fmt.Sprintf("✅ Añadidas: %d", result.Added)
	if skipped := len(bad) + len(result.Skipped); skipped > 0 {
		text += fmt.Sprintf("\n⚠️ Ignoradas: %d", skipped)
	}
	return c.Send(text)
}

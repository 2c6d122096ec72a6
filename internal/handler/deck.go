package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/legacy"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const maxUploadSize = 5 << 20

// formatDueLine is the one-line reminder shown above the menu
func formatDueLine(stats domain.DeckStats) string {
	if stats.Due == 0 {
		return "✅ Nada pendiente para hoy"
	}
	return fmt.Sprintf("📌 Para hoy: %d tarjetas", stats.Due)
}

// formatStats renders the deck summary
func formatStats(stats domain.DeckStats) string {
	if stats.Total == 0 {
		return "📊 Todavía no tienes tarjetas. Añade palabras para empezar."
	}
	return fmt.Sprintf(
		"📊 Estadísticas\n\n"+
			"Total: %d\n"+
			"🆕 Nuevas: %d\n"+
			"📖 Aprendiendo: %d\n"+
			"🔁 En repaso: %d\n\n"+
			"%s\n"+
			"Nuevas %d · Aprendiendo %d · Repaso %d",
		stats.Total, stats.New, stats.Learning, stats.Review,
		formatDueLine(stats),
		stats.DueNew, stats.DueLearning, stats.DueReview,
	)
}

// handleStats shows the deck summary
func (h *Handler) handleStats(c tele.Context) error {
	userID := c.Sender().ID

	ctx, cancel := h.requestContext()
	defer cancel()

	stats, err := h.statsService.Summary(ctx, userID)
	if err != nil {
		return respondAlert(c, msgError)
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(btnReview),
		markup.Row(btnBack),
	)
	return h.editOrSend(c, userID, formatStats(stats), markup)
}

// handleReset asks before wiping the learning progress
func (h *Handler) handleReset(c tele.Context) error {
	userID := c.Sender().ID

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnResetConfirm, btnCancel))

	return h.editOrSend(c, userID,
		"⚠️ Todas las tarjetas volverán a ser nuevas y se perderá el progreso. ¿Continuar?",
		markup,
	)
}

// handleResetConfirm resets every card of the user
func (h *Handler) handleResetConfirm(c tele.Context) error {
	userID := c.Sender().ID

	ctx, cancel := h.requestContext()
	defer cancel()

	if err := h.cardService.ResetProgress(ctx, userID); err != nil {
		h.logger.Error("Failed to reset progress", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, msgError)
	}

	h.ResetState(userID)
	return h.editOrSend(c, userID, "🔄 Progreso reiniciado.\n\n"+msgMainMenu, mainMenuMarkup())
}

// handleExport sends the deck as a JSON file
func (h *Handler) handleExport(c tele.Context) error {
	userID := c.Sender().ID

	ctx, cancel := h.requestContext()
	defer cancel()

	data, err := h.cardService.Export(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to export deck", zap.Error(err), zap.Int64("user_id", userID))
		return respondAlert(c, msgError)
	}

	if c.Callback() != nil {
		_ = c.Respond()
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: fmt.Sprintf("flashcards-%s.json", time.Now().Format("2006-01-02")),
		Caption:  "💾 Copia de seguridad. Envíala de vuelta para restaurarla.",
	}

	h.logger.Info("Deck exported", zap.Int64("user_id", userID), zap.Int("bytes", len(data)))
	return c.Send(doc)
}

// handleDocument imports a JSON backup or a spreadsheet of words
func (h *Handler) handleDocument(c tele.Context) error {
	userID := c.Sender().ID
	doc := c.Message().Document
	if doc == nil {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(doc.FileName))
	switch ext {
	case ".json", ".xlsx", ".csv":
	default:
		return c.Send("Formato no soportado. Envía un archivo .json, .xlsx o .csv.")
	}

	if doc.FileSize > maxUploadSize {
		return c.Send("El archivo es demasiado grande (máximo 5 MB).")
	}

	reader, err := h.bot.File(&doc.File)
	if err != nil {
		h.logger.Error("Failed to download document", zap.Error(err), zap.String("file", doc.FileName))
		return c.Send(msgError)
	}
	defer reader.Close()

	ctx, cancel := h.requestContext()
	defer cancel()

	if ext == ".json" {
		data, err := io.ReadAll(io.LimitReader(reader, maxUploadSize))
		if err != nil {
			return c.Send(msgError)
		}

		n, err := h.cardService.Import(ctx, userID, data)
		if errors.Is(err, legacy.ErrInvalidBackup) {
			return c.Send("El archivo no es una copia de seguridad válida.")
		}
		if err != nil {
			h.logger.Error("Failed to import backup", zap.Error(err), zap.Int64("user_id", userID))
			return c.Send(msgError)
		}
		return c.Send(fmt.Sprintf("✅ Tarjetas importadas: %d", n), mainMenuMarkup())
	}

	result, err := h.cardService.ImportSheet(ctx, userID, reader, doc.FileName)
	if err != nil {
		h.logger.Warn("Failed to import word list", zap.Error(err), zap.String("file", doc.FileName))
		return c.Send("No se pudo leer el archivo: " + err.Error())
	}

	text := fmt.Sprintf("✅ Palabras añadidas: %d", result.Added)
	if len(result.Skipped) > 0 {
		text += fmt.Sprintf("\n⚠️ Filas ignoradas: %d", len(result.Skipped))
		for i, row := range result.Skipped {
			if i == 5 {
				text += "\n…"
				break
			}
			text += "\n• " + row.Error()
		}
	}
	return c.Send(text, mainMenuMarkup())
}

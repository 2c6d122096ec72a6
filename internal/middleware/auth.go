package middleware

import (
	"context"
	"time"

	"flashcards/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const authTimeout = 5 * time.Second

// AuthMiddleware creates authentication middleware
func AuthMiddleware(authService *service.AuthService, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID

			ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
			defer cancel()

			// Ensure user exists
			if err := authService.EnsureUserExists(ctx, userID); err != nil {
				logger.Error("Failed to ensure user exists in middleware", zap.Error(err))
				return c.Send("Ha ocurrido un error. Inténtalo más tarde.")
			}

			// Check authorization
			authorized, err := authService.IsAuthorized(ctx, userID)
			if err != nil {
				logger.Error("Failed to check authorization in middleware", zap.Error(err))
				return c.Send("Ha ocurrido un error. Inténtalo más tarde.")
			}

			// If not authorized and not /start command, prompt for password
			if !authorized && c.Text() != "/start" {
				logger.Debug("Rejected unauthorized update", zap.Int64("user_id", userID))
				return c.Send("¡Hola! Para usar el bot necesitas la contraseña. Escríbela:")
			}

			// User is authorized or using /start, continue
			return next(c)
		}
	}
}

package handler

import (
	"context"
	"sync"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/middleware"
	"flashcards/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 15 * time.Second

// Handler manages all bot interactions
type Handler struct {
	bot           *tele.Bot
	authService   *service.AuthService
	cardService   *service.CardService
	reviewService *service.ReviewService
	statsService  *service.StatsService
	sessionLimit  int
	logger        *zap.Logger

	// User states (in-memory state machine)
	states   map[int64]*domain.StateData
	stateMux sync.RWMutex

	// Per-user locks so double taps on a button are processed one at a time
	callbackLocks map[int64]*sync.Mutex
	callbackMux   sync.Mutex
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	authService *service.AuthService,
	cardService *service.CardService,
	reviewService *service.ReviewService,
	statsService *service.StatsService,
	sessionLimit int,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:           bot,
		authService:   authService,
		cardService:   cardService,
		reviewService: reviewService,
		statsService:  statsService,
		sessionLimit:  sessionLimit,
		logger:        logger,
		states:        make(map[int64]*domain.StateData),
		callbackLocks: make(map[int64]*sync.Mutex),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Open to everyone: /start and plain text carry the password flow
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle(tele.OnText, h.handleText)

	protected := h.bot.Group()
	protected.Use(middleware.AuthMiddleware(h.authService, h.logger))

	// Commands
	protected.Handle("/add", h.handleAddCommand)
	protected.Handle("/review", h.handleReview)
	protected.Handle("/stats", h.handleStats)
	protected.Handle("/reset", h.handleReset)
	protected.Handle("/export", h.handleExport)
	protected.Handle(tele.OnDocument, h.handleDocument)

	// Callback queries (inline buttons)
	protected.Handle(&btnAddWords, h.handleAddWords)
	protected.Handle(&btnReview, h.handleReview)
	protected.Handle(&btnViewDays, h.handleViewDays)
	protected.Handle(&btnStats, h.handleStats)
	protected.Handle(&btnExport, h.handleExport)
	protected.Handle(&btnShowAnswer, h.handleShowAnswer)
	protected.Handle(&btnDeleteCard, h.handleDeleteCard)
	protected.Handle(&btnEndReview, h.handleEndReview)
	protected.Handle(&btnResetConfirm, h.handleResetConfirm)
	protected.Handle(&btnCancel, h.handleCancel)
	protected.Handle(&btnBack, h.handleStart)
	protected.Handle(&btnBackToDays, h.handleViewDays)
	protected.Handle(&btnMainMenu, h.handleStart)

	// Generic callback handler for dynamic data
	protected.Handle(tele.OnCallback, h.handleCallback)
}

// requestContext bounds the storage calls made for one update
func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// GetState returns user's current state
func (h *Handler) GetState(userID int64) *domain.StateData {
	h.stateMux.RLock()
	defer h.stateMux.RUnlock()

	state, exists := h.states[userID]
	if !exists {
		return &domain.StateData{State: domain.StateIdle}
	}
	return state
}

// SetState sets user's state
func (h *Handler) SetState(userID int64, state *domain.StateData) {
	h.stateMux.Lock()
	defer h.stateMux.Unlock()
	h.states[userID] = state
}

// ResetState resets user to idle state
func (h *Handler) ResetState(userID int64) {
	h.SetState(userID, &domain.StateData{State: domain.StateIdle})
}

// lockUser serializes callback processing for one user
func (h *Handler) lockUser(userID int64) func() {
	h.callbackMux.Lock()
	lock, exists := h.callbackLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		h.callbackLocks[userID] = lock
	}
	h.callbackMux.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Inline keyboard buttons
var (
	btnAddWords = tele.Btn{
		Unique: "add_words",
		Text:   "➕ Añadir palabras",
	}
	btnReview = tele.Btn{
		Unique: "review",
		Text:   "🧠 Repasar",
	}
	btnViewDays = tele.Btn{
		Unique: "view_days",
		Text:   "📅 Biblioteca",
	}
	btnStats = tele.Btn{
		Unique: "stats",
		Text:   "📊 Estadísticas",
	}
	btnExport = tele.Btn{
		Unique: "export",
		Text:   "💾 Exportar",
	}
	btnShowAnswer = tele.Btn{
		Unique: "show_answer",
		Text:   "👀 Mostrar respuesta",
	}
	btnDeleteCard = tele.Btn{
		Unique: "delete_card",
		Text:   "🗑 Eliminar tarjeta",
	}
	btnEndReview = tele.Btn{
		Unique: "end_review",
		Text:   "⏹ Terminar",
	}
	btnResetConfirm = tele.Btn{
		Unique: "reset_confirm",
		Text:   "⚠️ Sí, reiniciar",
	}
	btnCancel = tele.Btn{
		Unique: "cancel",
		Text:   "❌ Cancelar",
	}
	btnBack = tele.Btn{
		Unique: "back",
		Text:   "🏠 Volver",
	}
	btnBackToDays = tele.Btn{
		Unique: "back_to_days",
		Text:   "◀️ A los días",
	}
	btnMainMenu = tele.Btn{
		Unique: "main_menu",
		Text:   "🏠 Menú principal",
	}
)

// mainMenuMarkup returns the main menu keyboard
func mainMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnReview),
		menu.Row(btnAddWords),
		menu.Row(btnViewDays, btnStats),
		menu.Row(btnExport),
	)
	return menu
}

func cancelMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnCancel))
	return markup
}

const (
	msgError        = "Ha ocurrido un error. Inténtalo más tarde."
	msgAskPassword  = "¡Hola! Para usar el bot necesitas la contraseña. Escríbela:"
	msgWrongPass    = "Contraseña incorrecta"
	msgMainMenu     = "🏠 Menú principal\n\nElige una opción:"
	msgAskWord      = "Envía una palabra en alemán (por ejemplo «der Hund»)."
	msgAskTranslate = "Ahora envía la traducción"
)

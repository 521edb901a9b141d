package handler

import (
	"log/slog"
	"net/http"

	"github.com/efreitasn/stockgame/internal/service"
)

// FeedbackHandler accepts user feedback.
type FeedbackHandler struct {
	players *service.PlayerService
	logger  *slog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(players *service.PlayerService, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{players: players, logger: logger}
}

type feedbackRequest struct {
	Content string `json:"content"`
}

type feedbackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

// Submit handles POST /feedback.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	f, err := h.players.SubmitFeedback(r.Context(), req.Content)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedbackResponse{
		Success:   true,
		Message:   "Feedback received",
		ID:        f.ID,
		CreatedAt: f.CreatedAt.UTC().Format(timeFormat),
	})
}

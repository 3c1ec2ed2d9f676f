package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pokersettle/internal/adapter/http/dto"
	"github.com/iho/pokersettle/internal/domain"
)

// GameHandler handles game lifecycle requests.
type GameHandler struct {
	gameUC GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameUC GameService) *GameHandler {
	return &GameHandler{gameUC: gameUC}
}

// Create creates a new game.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	game, err := h.gameUC.CreateGame(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create game", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GameFromDomain(game))
}

// Get retrieves a game by ID.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameUC.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get game", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GameFromDomain(game))
}

// Start moves a scheduled game to active.
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to start game", h.gameUC.StartGame)
}

// End moves an active game to completed.
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to end game", h.gameUC.EndGame)
}

func (h *GameHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	apply func(ctx context.Context, id string) (*domain.Game, error),
) {
	game, err := apply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GameFromDomain(game))
}

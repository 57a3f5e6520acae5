package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/gridline/tictac-services/internal/comm"
	"github.com/gridline/tictac-services/internal/gamesvc/service"
)

type Handler struct {
	tokenAuth   *jwtauth.JWTAuth
	gameService *service.GameService
	chatService *service.ChatService
}

func NewHandler(gameService *service.GameService, chatService *service.ChatService) *Handler {
	return &Handler{
		gameService: gameService,
		chatService: chatService,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "game service is running at port " + os.Getenv("GAME_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	h.CreateResponse(w, rsp)
}

// GetGameHandler serves the public snapshot of one game: the projection a
// client renders plus the chat history, looked up by code.
func (h *Handler) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	g, err := h.gameService.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
			return
		}
		log.Errorf("Error fetching game %s: %v", code, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal error"})
		return
	}

	history, err := h.chatService.History(r.Context(), g.ID)
	if err != nil {
		log.Errorf("Error fetching messages for game %s: %v", code, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal error"})
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: comm.GameData{
			Game:     comm.ToGamePayload(g),
			Messages: comm.ToMessagePayloads(history),
		},
	})
}

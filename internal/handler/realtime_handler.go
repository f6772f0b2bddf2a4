package handler

import (
	"log/slog"
	"net/http"

	"github.com/ahmadqo/bengkel-pinjam/internal/middleware"
	"github.com/ahmadqo/bengkel-pinjam/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Admin godoc
// @Summary      Websocket dashboard admin
// @Description  Mengirim {"type":"stats_updated","source":"loan|account|item"} setiap kali statistik berubah. Token dikirim lewat query ?token=.
// @Tags         dashboard
// @Param        token  query  string  true  "Access token"
// @Success      101
// @Failure      401  {object}  response.Response
// @Router       /ws/admin [get]
func (h *RealtimeHandler) Admin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if err := h.hub.ServeWS(w, r, userID); err != nil {
		// Upgrader sudah menulis response error
		slog.WarnContext(r.Context(), "websocket upgrade failed", "user_id", userID, "error", err)
	}
}

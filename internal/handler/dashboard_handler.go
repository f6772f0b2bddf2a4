package handler

import (
	"net/http"

	"github.com/ahmadqo/bengkel-pinjam/internal/middleware"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
)

type DashboardHandler struct {
	svc service.DashboardService
}

func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Admin godoc
// @Summary      Statistik dashboard admin
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /dashboard/admin [get]
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.AdminStats(r.Context())
	if err != nil {
		respondError(w, r, err, "Gagal mengambil statistik")
		return
	}
	response.Success(w, "Statistik berhasil diambil", stats)
}

// Mine godoc
// @Summary      Statistik peminjam
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /dashboard/me [get]
func (h *DashboardHandler) Mine(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.BorrowerStats(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err, "Gagal mengambil statistik")
		return
	}
	response.Success(w, "Statistik berhasil diambil", stats)
}

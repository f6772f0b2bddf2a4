package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

type AccountHandler struct {
	svc service.VerificationService
}

func NewAccountHandler(svc service.VerificationService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GetAll lists accounts for the verification queue
// @Summary      Antrean verifikasi akun
// @Tags         accounts
// @Produce      json
// @Param        role      query  string  false  "siswa, guru, umum (boleh dipisah koma)"
// @Param        status    query  string  false  "pending, disetujui, ditolak"
// @Param        search    query  string  false  "Cari nama atau email"
// @Param        page      query  int     false  "Halaman (default 1)"
// @Param        per_page  query  int     false  "Jumlah per halaman (default 20)"
// @Security     BearerAuth
// @Success      200  {object}  response.PaginatedResponse
// @Router       /accounts [get]
func (h *AccountHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AccountFilter{
		Status:  model.AccountStatus(q.Get("status")),
		Search:  q.Get("search"),
		Page:    parseIntQuery(q.Get("page"), 1),
		PerPage: parseIntQuery(q.Get("per_page"), 20),
	}
	for _, role := range strings.Split(q.Get("role"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			filter.Roles = append(filter.Roles, model.Role(role))
		}
	}

	profiles, pagination, err := h.svc.ListAccounts(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data akun")
		return
	}
	response.Paginated(w, "Data akun berhasil diambil", profiles, pagination)
}

// Decide godoc
// @Summary      Setujui atau tolak akun
// @Description  Penolakan wajib menyertakan alasan_penolakan
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "Profile ID"
// @Param        body  body  model.DecideAccountRequest  true  "Keputusan"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /accounts/{id}/decision [post]
func (h *AccountHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req model.DecideAccountRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	profile, err := h.svc.Decide(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err, "Gagal memproses verifikasi akun")
		return
	}

	msg := "Akun disetujui"
	if profile.Status == model.AccountRejected {
		msg = "Akun ditolak"
	}
	response.Success(w, msg, profile)
}

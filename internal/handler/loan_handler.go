package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahmadqo/bengkel-pinjam/internal/middleware"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

type LoanHandler struct {
	svc service.LoanService
}

func NewLoanHandler(svc service.LoanService) *LoanHandler {
	return &LoanHandler{svc: svc}
}

func viewerFrom(r *http.Request) service.Viewer {
	return service.Viewer{
		UserID: middleware.GetUserIDFromContext(r.Context()),
		Role:   model.Role(middleware.GetRoleFromContext(r.Context())),
	}
}

// Submit godoc
// @Summary      Ajukan peminjaman
// @Description  Stok tidak dikurangi sampai admin menyetujui
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        body  body  model.SubmitLoanRequest  true  "Pengajuan"
// @Security     BearerAuth
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /loans [post]
func (h *LoanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitLoanRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	loan, err := h.svc.Submit(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err, "Gagal mengajukan peminjaman")
		return
	}
	response.Created(w, "Pengajuan peminjaman berhasil dikirim", loan)
}

// SubmitBatch godoc
// @Summary      Ajukan peminjaman beberapa alat
// @Description  Semua baris dibuat atau tidak sama sekali
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        body  body  model.SubmitBatchRequest  true  "Pengajuan"
// @Security     BearerAuth
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /loans/batch [post]
func (h *LoanHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitBatchRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	loans, err := h.svc.SubmitBatch(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err, "Gagal mengajukan peminjaman")
		return
	}
	response.Created(w, fmt.Sprintf("%d pengajuan peminjaman berhasil dikirim", len(loans)), loans)
}

// GetAll godoc
// @Summary      Daftar peminjaman
// @Tags         loans
// @Produce      json
// @Param        status    query  string  false  "pending, disetujui, ditolak, selesai"
// @Param        user_id   query  string  false  "Filter peminjam"
// @Param        alat_id   query  string  false  "Filter alat"
// @Param        page      query  int     false  "Halaman (default 1)"
// @Param        per_page  query  int     false  "Jumlah per halaman (default 20)"
// @Security     BearerAuth
// @Success      200  {object}  response.PaginatedResponse
// @Router       /loans [get]
func (h *LoanHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.LoanFilter{
		Status:  q.Get("status"),
		UserID:  q.Get("user_id"),
		AlatID:  q.Get("alat_id"),
		Page:    parseIntQuery(q.Get("page"), 1),
		PerPage: parseIntQuery(q.Get("per_page"), 20),
	}

	loans, pagination, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data peminjaman")
		return
	}
	response.Paginated(w, "Data peminjaman berhasil diambil", loans, pagination)
}

// Mine godoc
// @Summary      Riwayat peminjaman saya
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /loans/me [get]
func (h *LoanHandler) Mine(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.MyLoans(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err, "Gagal mengambil riwayat peminjaman")
		return
	}
	response.Success(w, "Riwayat peminjaman berhasil diambil", loans)
}

// GetByID godoc
// @Summary      Detail peminjaman
// @Tags         loans
// @Produce      json
// @Param        id   path  string  true  "Loan ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /loans/{id} [get]
func (h *LoanHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	loan, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"), viewerFrom(r))
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data peminjaman")
		return
	}
	response.Success(w, "Data peminjaman berhasil diambil", loan)
}

// Decide godoc
// @Summary      Setujui atau tolak peminjaman
// @Description  Persetujuan mengurangi stok secara atomik; keputusan yang sama diulang tidak berefek
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "Loan ID"
// @Param        body  body  model.DecideLoanRequest  true  "Keputusan"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /loans/{id}/decision [post]
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req model.DecideLoanRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	loan, err := h.svc.Decide(r.Context(), chi.URLParam(r, "id"), middleware.GetUserIDFromContext(r.Context()), req.Status)
	if err != nil {
		respondError(w, r, err, "Gagal memproses keputusan peminjaman")
		return
	}

	msg := "Peminjaman disetujui"
	if loan.Status == model.LoanRejected {
		msg = "Peminjaman ditolak"
	}
	response.Success(w, msg, loan)
}

// ConfirmReturn godoc
// @Summary      Konfirmasi pengembalian
// @Tags         loans
// @Produce      json
// @Param        id   path  string  true  "Loan ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /loans/{id}/return [post]
func (h *LoanHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	loan, err := h.svc.ConfirmReturn(r.Context(), chi.URLParam(r, "id"), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err, "Gagal mengonfirmasi pengembalian")
		return
	}
	response.Success(w, "Pengembalian alat berhasil dikonfirmasi", loan)
}

// Slip generates the loan slip PDF
// @Summary      Unduh slip peminjaman
// @Tags         loans
// @Produce      application/pdf
// @Param        id   path  string  true  "Loan ID"
// @Security     BearerAuth
// @Success      200  {file}    file  "Slip PDF"
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /loans/{id}/slip [get]
func (h *LoanHandler) Slip(w http.ResponseWriter, r *http.Request) {
	pdfBytes, filename, err := h.svc.Slip(r.Context(), chi.URLParam(r, "id"), viewerFrom(r))
	if err != nil {
		respondError(w, r, err, "Gagal membuat slip PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// Verify checks a loan slip via its QR token
// @Summary      Verifikasi slip peminjaman
// @Tags         public
// @Produce      json
// @Param        token  path  string  true  "QR token"
// @Success      200  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /verify-loan/{token} [get]
func (h *LoanHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.VerifySlip(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, r, err, "Gagal memverifikasi slip")
		return
	}

	if !result.IsValid {
		response.JSON(w, http.StatusUnprocessableEntity, false, result.Message, result)
		return
	}
	response.Success(w, result.Message, result)
}

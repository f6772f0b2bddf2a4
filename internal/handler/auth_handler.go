package handler

import (
	"net/http"

	"github.com/ahmadqo/bengkel-pinjam/internal/middleware"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// @Summary      Login
// @Description  Login dengan email dan password. Akun pending atau ditolak mendapat 403 beserta statusnya.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.LoginRequest  true  "Kredensial"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Terjadi kesalahan server")
		return
	}

	response.Success(w, "Login berhasil", result)
}

// AccountStatus godoc
// @Summary      Status akun
// @Description  Dipakai halaman menunggu verifikasi; memerlukan kredensial, bukan token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.LoginRequest  true  "Kredensial"
// @Success      200   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Router       /auth/status [post]
func (h *AuthHandler) AccountStatus(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	status, err := h.authService.AccountStatus(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Terjadi kesalahan server")
		return
	}

	response.Success(w, "Status akun berhasil diambil", status)
}

// RegisterStudent godoc
// @Summary      Daftar sebagai siswa
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.RegisterStudentRequest  true  "Data siswa"
// @Success      201   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /auth/register/siswa [post]
func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterStudentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	profile, err := h.authService.RegisterStudent(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Gagal mendaftarkan akun")
		return
	}
	response.Created(w, "Pendaftaran berhasil, menunggu verifikasi admin", profile)
}

// RegisterTeacher godoc
// @Summary      Daftar sebagai guru
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.RegisterTeacherRequest  true  "Data guru"
// @Success      201   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /auth/register/guru [post]
func (h *AuthHandler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterTeacherRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	profile, err := h.authService.RegisterTeacher(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Gagal mendaftarkan akun")
		return
	}
	response.Created(w, "Pendaftaran berhasil, menunggu verifikasi admin", profile)
}

// RegisterGeneral godoc
// @Summary      Daftar sebagai umum
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.RegisterGeneralRequest  true  "Data pendaftar"
// @Success      201   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /auth/register/umum [post]
func (h *AuthHandler) RegisterGeneral(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterGeneralRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	profile, err := h.authService.RegisterGeneral(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Gagal mendaftarkan akun")
		return
	}
	response.Created(w, "Pendaftaran berhasil, menunggu verifikasi admin", profile)
}

// RefreshToken godoc
// @Summary      Perbarui token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      service.RefreshTokenRequest  true  "Refresh token"
// @Success      200   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshTokenRequest

	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	if req.RefreshToken == "" {
		response.BadRequest(w, "Refresh token wajib diisi", nil)
		return
	}

	tokenPair, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err, "Terjadi kesalahan server")
		return
	}

	response.Success(w, "Token berhasil diperbarui", tokenPair)
}

// Me godoc
// @Summary      Profil pengguna yang login
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		response.Unauthorized(w, "User tidak terautentikasi")
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data user")
		return
	}

	response.Success(w, "Data user berhasil diambil", user)
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/config"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

// Request & Response DTOs
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  *model.Profile  `json:"user"`
	Token utils.TokenPair `json:"token"`
}

type RegisterStudentRequest struct {
	NamaLengkap string `json:"nama_lengkap" validate:"required,max=150"`
	Email       string `json:"email"        validate:"required,email,max=255"`
	Password    string `json:"password"     validate:"required,password"`
	Umur        int    `json:"umur"         validate:"required,min=5,max=100"`
	Kelas       string `json:"kelas"        validate:"required,max=50"`
	Jurusan     string `json:"jurusan"      validate:"required,max=100"`
	NIS         string `json:"nis"          validate:"required,max=30"`
}

type RegisterTeacherRequest struct {
	NamaLengkap   string `json:"nama_lengkap"   validate:"required,max=150"`
	Email         string `json:"email"          validate:"required,email,max=255"`
	Password      string `json:"password"       validate:"required,password"`
	MataPelajaran string `json:"mata_pelajaran" validate:"required,max=100"`
	NIP           string `json:"nip"            validate:"required,max=30"`
}

type RegisterGeneralRequest struct {
	NamaLengkap string `json:"nama_lengkap" validate:"required,max=150"`
	Email       string `json:"email"        validate:"required,email,max=255"`
	Password    string `json:"password"     validate:"required,password"`
	Kelas       string `json:"kelas"        validate:"max=50"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Errors
var (
	ErrInvalidCredentials = errors.New("email atau password salah")
	ErrInvalidRefresh     = errors.New("refresh token tidak valid atau sudah expired")
	ErrEmailAlreadyExists = apperror.Conflict("email sudah terdaftar")
	ErrProfileNotFound    = apperror.NotFound("akun tidak ditemukan")
)

const (
	msgAccountPending  = "akun Anda masih menunggu verifikasi admin"
	msgAccountRejected = "pendaftaran akun Anda ditolak"
)

type AuthService interface {
	RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*model.Profile, error)
	RegisterTeacher(ctx context.Context, req RegisterTeacherRequest) (*model.Profile, error)
	RegisterGeneral(ctx context.Context, req RegisterGeneralRequest) (*model.Profile, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
	Me(ctx context.Context, userID string) (*model.Profile, error)
	// AccountStatus dipakai halaman menunggu/ditolak; tidak butuh akun disetujui.
	AccountStatus(ctx context.Context, req LoginRequest) (*model.AccountStatusResponse, error)
}

type authService struct {
	repo repository.ProfileRepository
	cfg  *config.JWTConfig
}

func NewAuthService(repo repository.ProfileRepository, cfg *config.JWTConfig) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*model.Profile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	umur := req.Umur
	profile := &model.Profile{
		Email:       req.Email,
		NamaLengkap: req.NamaLengkap,
		Role:        model.RoleStudent,
		Kelas:       strPtr(utils.SanitizeString(req.Kelas)),
		Jurusan:     strPtr(utils.SanitizeString(req.Jurusan)),
		NIS:         strPtr(utils.SanitizeString(req.NIS)),
		Umur:        &umur,
	}
	return s.register(ctx, profile, req.Password)
}

func (s *authService) RegisterTeacher(ctx context.Context, req RegisterTeacherRequest) (*model.Profile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	profile := &model.Profile{
		Email:         req.Email,
		NamaLengkap:   req.NamaLengkap,
		Role:          model.RoleTeacher,
		MataPelajaran: strPtr(utils.SanitizeString(req.MataPelajaran)),
		NIP:           strPtr(utils.SanitizeString(req.NIP)),
	}
	return s.register(ctx, profile, req.Password)
}

func (s *authService) RegisterGeneral(ctx context.Context, req RegisterGeneralRequest) (*model.Profile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	profile := &model.Profile{
		Email:       req.Email,
		NamaLengkap: req.NamaLengkap,
		Role:        model.RoleGeneral,
		Kelas:       strPtr(utils.SanitizeString(req.Kelas)),
	}
	return s.register(ctx, profile, req.Password)
}

// register menyimpan profil baru berstatus pending.
func (s *authService) register(ctx context.Context, profile *model.Profile, password string) (*model.Profile, error) {
	profile.Email = strings.ToLower(utils.SanitizeString(profile.Email))
	profile.NamaLengkap = utils.SanitizeString(profile.NamaLengkap)

	existing, err := s.repo.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, storeError(err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile.ID = uuid.New()
	profile.Password = string(hashedPassword)
	profile.Status = model.AccountPending
	profile.TanggalDaftar = now
	profile.UpdatedAt = now

	if err := s.repo.Create(ctx, profile); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, storeError(err)
	}
	return profile, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	profile, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := checkAccess(profile); err != nil {
		return nil, err
	}

	tokenPair, err := s.issueTokens(profile)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: profile, Token: *tokenPair}, nil
}

func (s *authService) AccountStatus(ctx context.Context, req LoginRequest) (*model.AccountStatusResponse, error) {
	profile, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := profile.StatusResponse()
	return &resp, nil
}

func (s *authService) authenticate(ctx context.Context, req LoginRequest) (*model.Profile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindByEmail(ctx, strings.ToLower(utils.SanitizeString(req.Email)))
	if err != nil {
		return nil, storeError(err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// checkAccess hanya mengizinkan admin dan akun yang sudah disetujui.
func checkAccess(profile *model.Profile) error {
	if profile.Role == model.RoleAdmin {
		return nil
	}
	switch profile.Status {
	case model.AccountApproved:
		return nil
	case model.AccountRejected:
		fields := map[string]string{"status": string(profile.Status)}
		if profile.AlasanPenolakan != nil {
			fields["alasan_penolakan"] = *profile.AlasanPenolakan
		}
		return apperror.ForbiddenWith(msgAccountRejected, fields)
	default:
		return apperror.ForbiddenWith(msgAccountPending, map[string]string{"status": string(profile.Status)})
	}
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := utils.ValidateToken(refreshToken, s.cfg.Secret, utils.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if profile == nil {
		return nil, ErrInvalidRefresh
	}
	// Akun yang dibatalkan verifikasinya tidak boleh memperpanjang sesi
	if err := checkAccess(profile); err != nil {
		return nil, err
	}

	return s.issueTokens(profile)
}

func (s *authService) issueTokens(profile *model.Profile) (*utils.TokenPair, error) {
	claims := model.JWTClaims{
		UserID: profile.ID.String(),
		Email:  profile.Email,
		Role:   string(profile.Role),
		Name:   profile.NamaLengkap,
	}
	return utils.GenerateTokenPair(claims, s.cfg.Secret, s.cfg.ExpireHours, s.cfg.RefreshExpHours)
}

func (s *authService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	id, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

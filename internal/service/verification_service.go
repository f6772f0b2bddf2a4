package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
)

var (
	ErrReasonRequired     = apperror.ValidationFields("alasan penolakan wajib diisi", map[string]string{"alasan_penolakan": "Wajib diisi"})
	ErrAdminNotVerifiable = apperror.Validation("akun admin tidak melalui verifikasi")
	ErrInvalidOutcome     = apperror.Validation("status keputusan harus 'disetujui' atau 'ditolak'")
)

// AccountConfirmer menandai email akun sebagai terkonfirmasi setelah disetujui.
type AccountConfirmer interface {
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
}

type VerificationService interface {
	ListAccounts(ctx context.Context, filter model.AccountFilter) ([]*model.Profile, *response.Pagination, error)
	Decide(ctx context.Context, profileID string, req model.DecideAccountRequest) (*model.Profile, error)
	CountPending(ctx context.Context) (int64, error)
}

type verificationService struct {
	repo      repository.ProfileRepository
	tx        repository.Transactor
	confirmer AccountConfirmer
	notifier  StatsNotifier
	roles     []model.Role
	log       *slog.Logger
}

func NewVerificationService(
	repo repository.ProfileRepository,
	tx repository.Transactor,
	confirmer AccountConfirmer,
	notifier StatsNotifier,
	roles []string,
	log *slog.Logger,
) VerificationService {
	var queueRoles []model.Role
	for _, r := range roles {
		if role := model.Role(r); role.IsBorrower() {
			queueRoles = append(queueRoles, role)
		}
	}
	return &verificationService{
		repo:      repo,
		tx:        tx,
		confirmer: confirmer,
		notifier:  notifierOrNop(notifier),
		roles:     queueRoles,
		log:       log,
	}
}

func (s *verificationService) ListAccounts(ctx context.Context, filter model.AccountFilter) ([]*model.Profile, *response.Pagination, error) {
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage, 20)

	var roles []model.Role
	for _, r := range filter.Roles {
		if r.IsBorrower() {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		roles = s.roles
	}
	filter.Roles = roles

	profiles, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return profiles, response.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *verificationService) Decide(ctx context.Context, profileID string, req model.DecideAccountRequest) (*model.Profile, error) {
	id, err := parseID(profileID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	switch req.Status {
	case model.AccountApproved:
		reason = ""
	case model.AccountRejected:
		if reason == "" {
			return nil, ErrReasonRequired
		}
	default:
		return nil, ErrInvalidOutcome
	}

	var (
		result  *model.Profile
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		profile, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return storeError(err)
		}
		if profile == nil {
			return ErrProfileNotFound
		}
		if profile.Role == model.RoleAdmin {
			return ErrAdminNotVerifiable
		}

		result = profile
		if profile.Status == req.Status && sameReason(profile.AlasanPenolakan, reason) {
			return nil
		}

		var reasonPtr *string
		if req.Status == model.AccountRejected {
			reasonPtr = &reason
		}
		if err := s.repo.UpdateStatus(ctx, id, req.Status, reasonPtr); err != nil {
			return storeError(err)
		}

		profile.Status = req.Status
		profile.AlasanPenolakan = reasonPtr
		changed = true
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	if !changed {
		return result, nil
	}

	s.log.Info("account decided", "profile_id", id, "status", req.Status)

	if req.Status == model.AccountApproved && result.EmailConfirmedAt == nil {
		// Best-effort: kegagalan konfirmasi tidak membatalkan persetujuan
		if err := s.confirmer.ConfirmEmail(ctx, id); err != nil {
			s.log.Warn("failed to confirm email after approval", "profile_id", id, "error", err)
		}
	}

	s.notifier.NotifyStatsChanged(SourceAccount)
	return result, nil
}

func (s *verificationService) CountPending(ctx context.Context) (int64, error) {
	count, err := s.repo.CountByStatus(ctx, model.AccountPending)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

func sameReason(current *string, reason string) bool {
	if current == nil {
		return reason == ""
	}
	return *current == reason
}

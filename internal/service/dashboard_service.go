package service

import (
	"context"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
)

type DashboardService interface {
	AdminStats(ctx context.Context) (*model.AdminStats, error)
	BorrowerStats(ctx context.Context, userID string) (*model.BorrowerStats, error)
}

type dashboardService struct {
	profiles repository.ProfileRepository
	items    repository.ItemRepository
	loans    repository.LoanRepository
}

func NewDashboardService(profiles repository.ProfileRepository, items repository.ItemRepository, loans repository.LoanRepository) DashboardService {
	return &dashboardService{profiles: profiles, items: items, loans: loans}
}

func (s *dashboardService) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	var (
		stats model.AdminStats
		err   error
	)

	if stats.AkunPending, err = s.profiles.CountByStatus(ctx, model.AccountPending); err != nil {
		return nil, storeError(err)
	}
	if stats.TotalAlat, err = s.items.Count(ctx); err != nil {
		return nil, storeError(err)
	}
	if stats.PeminjamanPending, err = s.loans.CountByStatus(ctx, model.LoanPending); err != nil {
		return nil, storeError(err)
	}
	if stats.PeminjamanAktif, err = s.loans.CountActive(ctx); err != nil {
		return nil, storeError(err)
	}
	return &stats, nil
}

func (s *dashboardService) BorrowerStats(ctx context.Context, userID string) (*model.BorrowerStats, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.loans.CountByUser(ctx, uid)
	if err != nil {
		return nil, storeError(err)
	}
	available, err := s.items.CountAvailable(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	// Pengembalian selalu memindahkan status ke selesai, jadi disetujui = sedang dipinjam
	return &model.BorrowerStats{
		Pending:        counts[model.LoanPending],
		Disetujui:      counts[model.LoanApproved],
		Ditolak:        counts[model.LoanRejected],
		Selesai:        counts[model.LoanCompleted],
		SedangDipinjam: counts[model.LoanApproved],
		AlatTersedia:   available,
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/lending"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

var (
	ErrLoanNotFound     = apperror.NotFound("peminjaman tidak ditemukan")
	ErrNotBorrower      = apperror.Forbidden("akun belum disetujui atau tidak dapat meminjam alat")
	ErrNotLoanOwner     = apperror.Forbidden("Anda tidak memiliki akses ke peminjaman ini")
	ErrExceedsStock     = apperror.ValidationFields("jumlah melebihi stok yang tersedia", map[string]string{"jumlah": "Melebihi stok"})
	ErrReturnDatePast   = apperror.ValidationFields("tanggal kembali tidak boleh sebelum hari ini", map[string]string{"tanggal_kembali_rencana": "Tidak boleh sebelum hari ini"})
	ErrItemUnavailable  = apperror.ValidationFields("alat sedang tidak tersedia untuk dipinjam", map[string]string{"alat_id": "Tidak tersedia"})
	ErrDuplicateItem    = apperror.Validation("alat yang sama tidak boleh diajukan dua kali dalam satu formulir")
	ErrSlipNotAvailable = apperror.InvalidState("slip hanya tersedia untuk peminjaman yang disetujui")
)

// Viewer identitas pemanggil untuk pengecekan akses.
type Viewer struct {
	UserID string
	Role   model.Role
}

func (v Viewer) IsAdmin() bool {
	return v.Role == model.RoleAdmin
}

type SlipConfig struct {
	PublicURL  string
	SchoolName string
}

type LoanService interface {
	Submit(ctx context.Context, requesterID string, req model.SubmitLoanRequest) (*model.Loan, error)
	SubmitBatch(ctx context.Context, requesterID string, req model.SubmitBatchRequest) ([]*model.Loan, error)
	Decide(ctx context.Context, loanID, adminID string, outcome model.LoanStatus) (*model.Loan, error)
	ConfirmReturn(ctx context.Context, loanID, adminID string) (*model.Loan, error)
	List(ctx context.Context, filter model.LoanFilter) ([]*model.Loan, *response.Pagination, error)
	MyLoans(ctx context.Context, userID string) ([]*model.Loan, error)
	GetByID(ctx context.Context, id string, viewer Viewer) (*model.Loan, error)
	Slip(ctx context.Context, id string, viewer Viewer) ([]byte, string, error)
	VerifySlip(ctx context.Context, token string) (*model.SlipVerification, error)
}

type loanService struct {
	repo     repository.LoanRepository
	items    repository.ItemRepository
	profiles repository.ProfileRepository
	tx       repository.Transactor
	machine  *lending.Machine
	notifier StatsNotifier
	slip     SlipConfig
	log      *slog.Logger
}

func NewLoanService(
	repo repository.LoanRepository,
	items repository.ItemRepository,
	profiles repository.ProfileRepository,
	tx repository.Transactor,
	notifier StatsNotifier,
	slip SlipConfig,
	log *slog.Logger,
) LoanService {
	return &loanService{
		repo:     repo,
		items:    items,
		profiles: profiles,
		tx:       tx,
		machine:  lending.NewMachine(),
		notifier: notifierOrNop(notifier),
		slip:     slip,
		log:      log,
	}
}

func (s *loanService) Submit(ctx context.Context, requesterID string, req model.SubmitLoanRequest) (*model.Loan, error) {
	loans, err := s.SubmitBatch(ctx, requesterID, model.SubmitBatchRequest{
		Items:                 []model.LoanItemRequest{{AlatID: req.AlatID, Jumlah: req.Jumlah}},
		Keperluan:             req.Keperluan,
		TanggalKembaliRencana: req.TanggalKembaliRencana,
	})
	if err != nil {
		return nil, err
	}
	return loans[0], nil
}

func (s *loanService) SubmitBatch(ctx context.Context, requesterID string, req model.SubmitBatchRequest) ([]*model.Loan, error) {
	userID, err := parseID(requesterID)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	today := utils.Today()
	planned, err := utils.ParseDate(req.TanggalKembaliRencana)
	if err != nil {
		return nil, apperror.ValidationFields("format tanggal tidak valid", map[string]string{"tanggal_kembali_rencana": "Gunakan format YYYY-MM-DD"})
	}
	if planned.Before(today) {
		return nil, ErrReturnDatePast
	}

	itemIDs := make([]uuid.UUID, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for i, it := range req.Items {
		id, err := parseID(it.AlatID)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, ErrDuplicateItem
		}
		seen[id] = true
		itemIDs[i] = id
	}

	var created []*model.Loan
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		requester, err := s.profiles.FindByID(ctx, userID)
		if err != nil {
			return storeError(err)
		}
		if requester == nil || !requester.CanBorrow() {
			return ErrNotBorrower
		}

		now := time.Now()
		for i, it := range req.Items {
			item, err := s.items.FindByID(ctx, itemIDs[i])
			if err != nil {
				return storeError(err)
			}
			if item == nil {
				return ErrItemNotFound
			}
			if !item.StatusStok.Borrowable() {
				return ErrItemUnavailable
			}
			if it.Jumlah < 1 {
				return apperror.ValidationFields("jumlah minimal 1", map[string]string{"jumlah": "Minimal 1"})
			}
			// Stok tidak dipesan saat pengajuan; hanya dicek terhadap stok saat ini
			if it.Jumlah > item.Jumlah {
				return ErrExceedsStock
			}

			nama := item.Nama
			loan := &model.Loan{
				ID:                    uuid.New(),
				UserID:                userID,
				AlatID:                item.ID,
				Jumlah:                it.Jumlah,
				Keperluan:             utils.SanitizeString(req.Keperluan),
				TanggalPinjam:         today,
				TanggalKembaliRencana: planned,
				Status:                model.LoanPending,
				CreatedAt:             now,
				UpdatedAt:             now,
				NamaAlat:              &nama,
				NamaPeminjam:          &requester.NamaLengkap,
			}
			if err := s.repo.Create(ctx, loan); err != nil {
				return storeError(err)
			}
			created = append(created, loan)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.Info("loan requests submitted", "user_id", userID, "count", len(created))
	s.notifier.NotifyStatsChanged(SourceLoan)
	return created, nil
}

func (s *loanService) Decide(ctx context.Context, loanID, adminID string, outcome model.LoanStatus) (*model.Loan, error) {
	id, err := parseID(loanID)
	if err != nil {
		return nil, err
	}
	event, err := s.machine.EventFor(outcome)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, adminID, event)
}

func (s *loanService) ConfirmReturn(ctx context.Context, loanID, adminID string) (*model.Loan, error) {
	id, err := parseID(loanID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, adminID, lending.EventReturn)
}

// transition menerapkan event pada peminjaman dan efek stoknya dalam satu
// transaksi dengan baris peminjaman terkunci.
func (s *loanService) transition(ctx context.Context, id uuid.UUID, adminID string, event lending.Event) (*model.Loan, error) {
	var (
		result  *model.Loan
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return storeError(err)
		}
		if loan == nil {
			return ErrLoanNotFound
		}

		next, err := s.machine.Next(loan.Status, event)
		if errors.Is(err, lending.ErrAlreadyApplied) {
			result = loan
			return nil
		}
		if err != nil {
			return err
		}

		if delta := s.machine.StockDelta(loan.Status, event, loan.Jumlah); delta != 0 {
			remaining, err := s.items.ChangeStock(ctx, loan.AlatID, delta)
			switch {
			case errors.Is(err, repository.ErrNotFound) && event == lending.EventReturn:
				// Alat sudah dihapus: pengembalian tetap dicatat
				s.log.Error("item missing on return, stock restore skipped", "loan_id", loan.ID, "item_id", loan.AlatID)
			case errors.Is(err, repository.ErrNotFound):
				return ErrItemNotFound
			case err != nil:
				return storeError(err)
			default:
				s.log.Info("stock updated", "loan_id", loan.ID, "item_id", loan.AlatID, "delta", delta, "jumlah", remaining)
			}
		}

		now := time.Now()
		loan.Status = next
		loan.UpdatedAt = now
		switch event {
		case lending.EventApprove:
			token, err := utils.NewSlipToken()
			if err != nil {
				return err
			}
			loan.QRToken = &token
			loan.Dikembalikan = false
			loan.TanggalKembali = nil
			s.markDecided(loan, adminID, now)
		case lending.EventReject:
			s.markDecided(loan, adminID, now)
		case lending.EventReturn:
			today := utils.DateOf(now)
			loan.Dikembalikan = true
			loan.TanggalKembali = &today
		}

		if err := s.repo.UpdateState(ctx, loan); err != nil {
			return storeError(err)
		}
		result = loan
		changed = true
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if changed {
		s.log.Info("loan transitioned", "loan_id", id, "event", event, "status", result.Status)
		s.notifier.NotifyStatsChanged(SourceLoan)
	}
	return result, nil
}

func (s *loanService) markDecided(loan *model.Loan, adminID string, now time.Time) {
	if uid, err := uuid.Parse(adminID); err == nil {
		loan.DiputuskanOleh = &uid
	}
	loan.DiputuskanPada = &now
}

func (s *loanService) List(ctx context.Context, filter model.LoanFilter) ([]*model.Loan, *response.Pagination, error) {
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage, 20)

	fields := map[string]string{}
	if filter.UserID != "" {
		if _, err := uuid.Parse(filter.UserID); err != nil {
			fields["user_id"] = "Harus berupa UUID"
		}
	}
	if filter.AlatID != "" {
		if _, err := uuid.Parse(filter.AlatID); err != nil {
			fields["alat_id"] = "Harus berupa UUID"
		}
	}
	if len(fields) > 0 {
		return nil, nil, apperror.ValidationFields("filter tidak valid", fields)
	}

	loans, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return loans, response.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *loanService) MyLoans(ctx context.Context, userID string) ([]*model.Loan, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	loans, err := s.repo.FindByUser(ctx, uid)
	if err != nil {
		return nil, storeError(err)
	}
	return loans, nil
}

func (s *loanService) GetByID(ctx context.Context, id string, viewer Viewer) (*model.Loan, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	loan, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, storeError(err)
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	if !viewer.IsAdmin() && loan.UserID.String() != viewer.UserID {
		return nil, ErrNotLoanOwner
	}
	return loan, nil
}

func (s *loanService) Slip(ctx context.Context, id string, viewer Viewer) ([]byte, string, error) {
	loan, err := s.GetByID(ctx, id, viewer)
	if err != nil {
		return nil, "", err
	}
	if loan.QRToken == nil || (loan.Status != model.LoanApproved && loan.Status != model.LoanCompleted) {
		return nil, "", ErrSlipNotAvailable
	}

	qrPNG, err := utils.QRCodePNG(utils.SlipVerifyURL(s.slip.PublicURL, *loan.QRToken), 256)
	if err != nil {
		return nil, "", err
	}

	decidedAt := loan.CreatedAt
	if loan.DiputuskanPada != nil {
		decidedAt = *loan.DiputuskanPada
	}
	number := utils.SlipNumber(loan.ID.String(), decidedAt)

	pdfBytes, err := utils.GenerateLoanSlipPDF(utils.LoanSlipData{
		SlipNumber: number,
		SchoolName: s.slip.SchoolName,
		PrintedAt:  time.Now(),
		Borrower: utils.SlipBorrower{
			Nama:    deref(loan.NamaPeminjam),
			Role:    deref(loan.RolePeminjam),
			Kelas:   deref(loan.KelasPeminjam),
			Jurusan: deref(loan.JurusanPeminjam),
		},
		Item: utils.SlipItem{
			Nama:   derefOr(loan.NamaAlat, "(alat telah dihapus)"),
			Jumlah: loan.Jumlah,
		},
		Keperluan:      loan.Keperluan,
		TanggalPinjam:  loan.TanggalPinjam,
		RencanaKembali: loan.TanggalKembaliRencana,
		TanggalKembali: loan.TanggalKembali,
		Status:         string(loan.Status),
		DisetujuiPada:  loan.DiputuskanPada,
		QRCodePNG:      qrPNG,
	})
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("slip-peminjaman-%s.pdf", loan.ID.String()[:8])
	return pdfBytes, filename, nil
}

func (s *loanService) VerifySlip(ctx context.Context, token string) (*model.SlipVerification, error) {
	if token == "" {
		return &model.SlipVerification{IsValid: false, Message: "Token tidak valid"}, nil
	}

	loan, err := s.repo.FindByQRToken(ctx, token)
	if err != nil {
		return nil, storeError(err)
	}
	if loan == nil {
		return &model.SlipVerification{IsValid: false, Message: "Slip tidak ditemukan atau tidak valid"}, nil
	}

	switch {
	case loan.IsOut():
		return &model.SlipVerification{IsValid: true, MasihDipinjam: true, Loan: loan, Message: "Slip valid, alat sedang dipinjam"}, nil
	case loan.Status == model.LoanCompleted:
		return &model.SlipVerification{IsValid: true, Loan: loan, Message: "Slip valid, alat sudah dikembalikan"}, nil
	}
	return &model.SlipVerification{IsValid: false, Loan: loan, Message: "Slip tidak berlaku"}, nil
}

func deref(s *string) string {
	return derefOr(s, "")
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

// Alat boleh sudah dihapus, karena itu LEFT JOIN.
const loanSelect = `
	SELECT pm.id, pm.user_id, pm.alat_id, pm.jumlah, pm.keperluan, pm.tanggal_pinjam,
	       pm.tanggal_kembali_rencana, pm.tanggal_kembali, pm.dikembalikan, pm.status,
	       pm.qr_token, pm.diputuskan_oleh, pm.diputuskan_pada, pm.created_at, pm.updated_at,
	       p.nama_lengkap AS nama_peminjam, p.role AS role_peminjam,
	       p.kelas AS kelas_peminjam, p.jurusan AS jurusan_peminjam,
	       a.nama AS nama_alat
	FROM peminjaman pm
	LEFT JOIN profiles p ON p.id = pm.user_id
	LEFT JOIN alat a ON a.id = pm.alat_id`

type LoanRepository interface {
	FindAll(ctx context.Context, filter model.LoanFilter) ([]*model.Loan, int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*model.Loan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	// FindByIDForUpdate mengunci baris peminjaman sampai transaksi selesai.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	FindByQRToken(ctx context.Context, token string) (*model.Loan, error)
	Create(ctx context.Context, loan *model.Loan) error
	// UpdateState menyimpan kolom yang berubah karena transisi status.
	UpdateState(ctx context.Context, loan *model.Loan) error
	CountByStatus(ctx context.Context, status model.LoanStatus) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (map[model.LoanStatus]int64, error)
	// CountOpenByItem menghitung peminjaman pending atau disetujui yang belum kembali.
	CountOpenByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindAll(ctx context.Context, filter model.LoanFilter) ([]*model.Loan, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("pm.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("pm.user_id = $%d", argIdx))
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.AlatID != "" {
		conditions = append(conditions, fmt.Sprintf("pm.alat_id = $%d", argIdx))
		args = append(args, filter.AlatID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")
	q := conn(ctx, r.db)

	var total int64
	if err := sqlx.GetContext(ctx, q, &total, fmt.Sprintf("SELECT COUNT(*) FROM peminjaman pm WHERE %s", where), args...); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY pm.created_at DESC
		LIMIT $%d OFFSET $%d
	`, loanSelect, where, argIdx, argIdx+1)
	args = append(args, filter.PerPage, offset)

	loans := []*model.Loan{}
	if err := sqlx.SelectContext(ctx, q, &loans, query, args...); err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

func (r *loanRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*model.Loan, error) {
	loans := []*model.Loan{}
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &loans,
		loanSelect+" WHERE pm.user_id = $1 ORDER BY pm.created_at DESC", userID)
	return loans, err
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	return r.findOne(ctx, loanSelect+" WHERE pm.id = $1", id)
}

func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	if !inTx(ctx) {
		return nil, ErrNoTx
	}
	return r.findOne(ctx, loanSelect+" WHERE pm.id = $1 FOR UPDATE OF pm", id)
}

func (r *loanRepository) FindByQRToken(ctx context.Context, token string) (*model.Loan, error) {
	return r.findOne(ctx, loanSelect+" WHERE pm.qr_token = $1", token)
}

func (r *loanRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Loan, error) {
	var loan model.Loan
	found, err := getOne(ctx, conn(ctx, r.db), &loan, query, args...)
	if err != nil || !found {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	query := `
		INSERT INTO peminjaman (id, user_id, alat_id, jumlah, keperluan, tanggal_pinjam,
		                        tanggal_kembali_rencana, dikembalikan, status, created_at, updated_at)
		VALUES (:id, :user_id, :alat_id, :jumlah, :keperluan, :tanggal_pinjam,
		        :tanggal_kembali_rencana, :dikembalikan, :status, :created_at, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, loan)
	return err
}

func (r *loanRepository) UpdateState(ctx context.Context, loan *model.Loan) error {
	query := `
		UPDATE peminjaman SET
			status = :status, qr_token = :qr_token, dikembalikan = :dikembalikan,
			tanggal_kembali = :tanggal_kembali, diputuskan_oleh = :diputuskan_oleh,
			diputuskan_pada = :diputuskan_pada, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, loan)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *loanRepository) CountByStatus(ctx context.Context, status model.LoanStatus) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &count,
		"SELECT COUNT(*) FROM peminjaman WHERE status = $1", string(status))
	return count, err
}

func (r *loanRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &count,
		"SELECT COUNT(*) FROM peminjaman WHERE status = 'disetujui' AND dikembalikan = FALSE")
	return count, err
}

func (r *loanRepository) CountByUser(ctx context.Context, userID uuid.UUID) (map[model.LoanStatus]int64, error) {
	var rows []struct {
		Status model.LoanStatus `db:"status"`
		Total  int64            `db:"total"`
	}
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows,
		"SELECT status, COUNT(*) AS total FROM peminjaman WHERE user_id = $1 GROUP BY status", userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.LoanStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *loanRepository) CountOpenByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &count, `
		SELECT COUNT(*) FROM peminjaman
		WHERE alat_id = $1
		  AND (status = 'pending' OR (status = 'disetujui' AND dikembalikan = FALSE))
	`, itemID)
	return count, err
}

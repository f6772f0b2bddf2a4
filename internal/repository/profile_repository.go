package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

const profileColumns = `
	id, email, password, nama_lengkap, role, status, kelas, jurusan, nis, umur,
	mata_pelajaran, nip, alasan_penolakan, email_confirmed_at, tanggal_daftar, updated_at`

type ProfileRepository interface {
	FindAll(ctx context.Context, filter model.AccountFilter) ([]*model.Profile, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// FindByIDForUpdate mengunci baris profil sampai transaksi selesai.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus, reason *string) error
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status model.AccountStatus) (int64, error)
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindAll(ctx context.Context, filter model.AccountFilter) ([]*model.Profile, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	conditions := []string{"role <> 'admin'"}
	args := []interface{}{}
	argIdx := 1

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, string(role))
			argIdx++
		}
		conditions = append(conditions, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(filter.Status))
		argIdx++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(nama_lengkap ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx+1))
		search := "%" + filter.Search + "%"
		args = append(args, search, search)
		argIdx += 2
	}

	where := strings.Join(conditions, " AND ")
	q := conn(ctx, r.db)

	var total int64
	if err := sqlx.GetContext(ctx, q, &total, fmt.Sprintf("SELECT COUNT(*) FROM profiles WHERE %s", where), args...); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT %s
		FROM profiles
		WHERE %s
		ORDER BY tanggal_daftar DESC
		LIMIT $%d OFFSET $%d
	`, profileColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PerPage, offset)

	profiles := []*model.Profile{}
	if err := sqlx.SelectContext(ctx, q, &profiles, query, args...); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.findOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
}

func (r *profileRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if !inTx(ctx) {
		return nil, ErrNoTx
	}
	return r.findOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1 FOR UPDATE", id)
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.findOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE email = $1", strings.ToLower(email))
}

func (r *profileRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Profile, error) {
	var profile model.Profile
	found, err := getOne(ctx, conn(ctx, r.db), &profile, query, args...)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, password, nama_lengkap, role, status, kelas, jurusan, nis, umur,
		                      mata_pelajaran, nip, tanggal_daftar, updated_at)
		VALUES (:id, :email, :password, :nama_lengkap, :role, :status, :kelas, :jurusan, :nis, :umur,
		        :mata_pelajaran, :nip, :tanggal_daftar, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, profile)
	return err
}

func (r *profileRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus, reason *string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE profiles SET status = $2, alasan_penolakan = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(status), reason)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *profileRepository) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE profiles SET email_confirmed_at = COALESCE(email_confirmed_at, NOW())
		WHERE id = $1
	`, id)
	return err
}

func (r *profileRepository) CountByStatus(ctx context.Context, status model.AccountStatus) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &count,
		"SELECT COUNT(*) FROM profiles WHERE status = $1 AND role <> 'admin'", string(status))
	return count, err
}

package database

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAdminEmail    = "admin@sekolah.sch.id"
	DefaultAdminPassword = "Admin@123"
)

type Seeder struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewSeeder(db *sqlx.DB, log *slog.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// SeedAdmin membuat akun admin default jika belum ada admin sama sekali.
// Mengembalikan true jika akun baru dibuat.
func (s *Seeder) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM profiles WHERE role = 'admin'"); err != nil {
		return false, err
	}
	if count > 0 {
		s.log.Info("Admin user already exists, skipping seed")
		return false, nil
	}

	if email == "" {
		email = DefaultAdminEmail
	}
	if password == "" {
		password = DefaultAdminPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	// Admin tidak melalui antrian verifikasi
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, password, nama_lengkap, role, status, email_confirmed_at, tanggal_daftar, updated_at)
		VALUES ($1, $2, $3, $4, 'admin', 'disetujui', NOW(), NOW(), NOW())
	`,
		uuid.New(),
		strings.ToLower(strings.TrimSpace(email)),
		string(hashedPassword),
		"Administrator Bengkel",
	)
	if err != nil {
		return false, err
	}

	s.log.Warn("Default admin user created, segera ganti password setelah login pertama", "email", email)
	return true, nil
}

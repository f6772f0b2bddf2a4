package model

import (
	"time"

	"github.com/google/uuid"
)

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "disetujui"
	LoanRejected  LoanStatus = "ditolak"
	LoanCompleted LoanStatus = "selesai"
)

type Loan struct {
	ID                    uuid.UUID  `db:"id"                      json:"id"`
	UserID                uuid.UUID  `db:"user_id"                 json:"user_id"`
	AlatID                uuid.UUID  `db:"alat_id"                 json:"alat_id"`
	Jumlah                int        `db:"jumlah"                  json:"jumlah"`
	Keperluan             string     `db:"keperluan"               json:"keperluan"`
	TanggalPinjam         time.Time  `db:"tanggal_pinjam"          json:"tanggal_pinjam"`
	TanggalKembaliRencana time.Time  `db:"tanggal_kembali_rencana" json:"tanggal_kembali_rencana"`
	TanggalKembali        *time.Time `db:"tanggal_kembali"         json:"tanggal_kembali"`
	Dikembalikan          bool       `db:"dikembalikan"            json:"dikembalikan"`
	Status                LoanStatus `db:"status"                  json:"status"`
	QRToken               *string    `db:"qr_token"                json:"-"`
	DiputuskanOleh        *uuid.UUID `db:"diputuskan_oleh"         json:"diputuskan_oleh"`
	DiputuskanPada        *time.Time `db:"diputuskan_pada"         json:"diputuskan_pada"`
	CreatedAt             time.Time  `db:"created_at"              json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"              json:"updated_at"`

	// Join fields
	NamaPeminjam    *string `db:"nama_peminjam"    json:"nama_peminjam,omitempty"`
	RolePeminjam    *string `db:"role_peminjam"    json:"role_peminjam,omitempty"`
	KelasPeminjam   *string `db:"kelas_peminjam"   json:"kelas_peminjam,omitempty"`
	JurusanPeminjam *string `db:"jurusan_peminjam" json:"jurusan_peminjam,omitempty"`
	NamaAlat        *string `db:"nama_alat"        json:"nama_alat,omitempty"`
}

// IsOut true selama alat masih di tangan peminjam.
func (l *Loan) IsOut() bool {
	return l.Status == LoanApproved && !l.Dikembalikan
}

type SubmitLoanRequest struct {
	AlatID                string `json:"alat_id"                 validate:"required,uuid"`
	Jumlah                int    `json:"jumlah"                  validate:"required,min=1"`
	Keperluan             string `json:"keperluan"               validate:"required,max=500"`
	TanggalKembaliRencana string `json:"tanggal_kembali_rencana" validate:"required,datetime=2006-01-02"`
}

type LoanItemRequest struct {
	AlatID string `json:"alat_id" validate:"required,uuid"`
	Jumlah int    `json:"jumlah"  validate:"required,min=1"`
}

// SubmitBatchRequest satu formulir untuk beberapa alat sekaligus.
type SubmitBatchRequest struct {
	Items                 []LoanItemRequest `json:"items"                   validate:"required,min=1,dive"`
	Keperluan             string            `json:"keperluan"               validate:"required,max=500"`
	TanggalKembaliRencana string            `json:"tanggal_kembali_rencana" validate:"required,datetime=2006-01-02"`
}

type DecideLoanRequest struct {
	Status LoanStatus `json:"status" validate:"required,oneof=disetujui ditolak"`
}

type LoanFilter struct {
	Status  string
	UserID  string
	AlatID  string
	Page    int
	PerPage int
}

// SlipVerification untuk endpoint publik verifikasi QR slip peminjaman
type SlipVerification struct {
	IsValid       bool   `json:"is_valid"`
	MasihDipinjam bool   `json:"masih_dipinjam"`
	Loan          *Loan  `json:"peminjaman,omitempty"`
	Message       string `json:"message"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "siswa"
	RoleTeacher Role = "guru"
	RoleGeneral Role = "umum"
)

// BorrowerRoles adalah peran yang boleh meminjam setelah diverifikasi.
var BorrowerRoles = []Role{RoleStudent, RoleTeacher, RoleGeneral}

func (r Role) IsBorrower() bool {
	for _, br := range BorrowerRoles {
		if r == br {
			return true
		}
	}
	return false
}

type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountApproved AccountStatus = "disetujui"
	AccountRejected AccountStatus = "ditolak"
)

type Profile struct {
	ID               uuid.UUID     `db:"id"                 json:"id"`
	Email            string        `db:"email"              json:"email"`
	Password         string        `db:"password"           json:"-"` // hash bcrypt
	NamaLengkap      string        `db:"nama_lengkap"       json:"nama_lengkap"`
	Role             Role          `db:"role"               json:"role"`
	Status           AccountStatus `db:"status"             json:"status"`
	Kelas            *string       `db:"kelas"              json:"kelas"`
	Jurusan          *string       `db:"jurusan"            json:"jurusan"`
	NIS              *string       `db:"nis"                json:"nis"`
	Umur             *int          `db:"umur"               json:"umur"`
	MataPelajaran    *string       `db:"mata_pelajaran"     json:"mata_pelajaran"`
	NIP              *string       `db:"nip"                json:"nip"`
	AlasanPenolakan  *string       `db:"alasan_penolakan"   json:"alasan_penolakan"`
	EmailConfirmedAt *time.Time    `db:"email_confirmed_at" json:"email_confirmed_at"`
	TanggalDaftar    time.Time     `db:"tanggal_daftar"     json:"tanggal_daftar"`
	UpdatedAt        time.Time     `db:"updated_at"         json:"updated_at"`
}

// CanBorrow true jika akun sudah disetujui dan bukan admin.
func (p *Profile) CanBorrow() bool {
	return p.Status == AccountApproved && p.Role.IsBorrower()
}

// AccountStatusResponse dipakai halaman menunggu/ditolak di klien.
type AccountStatusResponse struct {
	Status          AccountStatus `json:"status"`
	Role            Role          `json:"role"`
	AlasanPenolakan *string       `json:"alasan_penolakan,omitempty"`
}

func (p *Profile) StatusResponse() AccountStatusResponse {
	return AccountStatusResponse{
		Status:          p.Status,
		Role:            p.Role,
		AlasanPenolakan: p.AlasanPenolakan,
	}
}

type AccountFilter struct {
	Roles   []Role
	Status  AccountStatus
	Search  string
	Page    int
	PerPage int
}

type DecideAccountRequest struct {
	Status AccountStatus `json:"status" validate:"required,oneof=disetujui ditolak"`
	Reason string        `json:"alasan_penolakan" validate:"max=500"`
}

// JWT Claims custom
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

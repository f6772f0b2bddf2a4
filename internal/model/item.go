package model

import (
	"time"

	"github.com/google/uuid"
)

type ItemCondition string

const (
	ConditionNew     ItemCondition = "baru"
	ConditionUsed    ItemCondition = "bekas"
	ConditionDamaged ItemCondition = "rusak"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionDamaged:
		return true
	}
	return false
}

type StockStatus string

const (
	StockAvailable StockStatus = "aman"
	StockLow       StockStatus = "hampir_habis"
	StockEmpty     StockStatus = "habis"
	StockRestock   StockStatus = "pending_pengadaan"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockAvailable, StockLow, StockEmpty, StockRestock:
		return true
	}
	return false
}

// BorrowableStock label yang tampil di katalog dan boleh diajukan peminjam.
var BorrowableStock = []StockStatus{StockAvailable, StockLow}

func (s StockStatus) Borrowable() bool {
	for _, b := range BorrowableStock {
		if s == b {
			return true
		}
	}
	return false
}

type Item struct {
	ID                 uuid.UUID     `db:"id"                  json:"id"`
	Nama               string        `db:"nama"                json:"nama"`
	Jumlah             int           `db:"jumlah"              json:"jumlah"`
	Kondisi            ItemCondition `db:"kondisi"             json:"kondisi"`
	StatusStok         StockStatus   `db:"status_stok"         json:"status_stok"`
	Deskripsi          string        `db:"deskripsi"           json:"deskripsi"`
	GambarURL          *string       `db:"gambar_url"          json:"gambar_url"`
	Kategori           *string       `db:"kategori"            json:"kategori"`
	TanggalDitambahkan time.Time     `db:"tanggal_ditambahkan" json:"tanggal_ditambahkan"`
	UpdatedAt          time.Time     `db:"updated_at"          json:"updated_at"`

	// Diisi service dari GambarURL, tidak disimpan
	GambarPublicURL *string `db:"-" json:"gambar_public_url,omitempty"`
}

// ItemRequest dipakai untuk create dan update (replace penuh).
type ItemRequest struct {
	Nama       string        `json:"nama"        validate:"required,max=150"`
	Jumlah     *int          `json:"jumlah"      validate:"required,min=0"`
	Kondisi    ItemCondition `json:"kondisi"     validate:"omitempty,oneof=baru bekas rusak"`
	StatusStok StockStatus   `json:"status_stok" validate:"omitempty,oneof=aman hampir_habis habis pending_pengadaan"`
	Deskripsi  string        `json:"deskripsi"   validate:"max=2000"`
	Kategori   *string       `json:"kategori"    validate:"omitempty,max=100"`
	GambarURL  *string       `json:"gambar_url"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type ItemFilter struct {
	Search   string
	Kategori string
	Page     int
	PerPage  int
}

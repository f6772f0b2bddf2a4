package model

type AdminStats struct {
	AkunPending       int64 `json:"akun_pending"`
	TotalAlat         int64 `json:"total_alat"`
	PeminjamanPending int64 `json:"peminjaman_pending"`
	PeminjamanAktif   int64 `json:"peminjaman_aktif"`
}

type BorrowerStats struct {
	Pending        int64 `json:"pending"`
	Disetujui      int64 `json:"disetujui"`
	Ditolak        int64 `json:"ditolak"`
	Selesai        int64 `json:"selesai"`
	SedangDipinjam int64 `json:"sedang_dipinjam"`
	AlatTersedia   int64 `json:"alat_tersedia"`
}

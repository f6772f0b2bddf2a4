package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Today tanggal hari ini (jam 00:00) pada zona waktu lokal.
func Today() time.Time {
	return DateOf(time.Now())
}

func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parse tanggal format YYYY-MM-DD pada zona waktu lokal.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

var bulan = [...]string{"", "Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember"}

// FormatTanggal contoh: 17 Agustus 2026
func FormatTanggal(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), bulan[t.Month()], t.Year())
}

package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type LoanSlipData struct {
	SlipNumber     string
	SchoolName     string
	PrintedAt      time.Time
	Borrower       SlipBorrower
	Item           SlipItem
	Keperluan      string
	TanggalPinjam  time.Time
	RencanaKembali time.Time
	TanggalKembali *time.Time
	Status         string
	DisetujuiPada  *time.Time
	QRCodePNG      []byte
}

type SlipBorrower struct {
	Nama    string
	Role    string
	Kelas   string
	Jurusan string
}

type SlipItem struct {
	Nama   string
	Jumlah int
}

// GenerateLoanSlipPDF membuat slip peminjaman A5 dengan QR verifikasi.
func GenerateLoanSlipPDF(data LoanSlipData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	// Kop
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 7, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 5, "Bengkel Praktik - Layanan Peminjaman Alat", "", 1, "C", false, 0, "")

	pdf.SetDrawColor(0, 51, 102)
	pdf.SetLineWidth(0.6)
	pdf.Line(12, pdf.GetY()+2, 136, pdf.GetY()+2)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "SLIP PEMINJAMAN ALAT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("No: %s", data.SlipNumber), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][]string{
		{"Peminjam", data.Borrower.Nama},
		{"Status Peminjam", data.Borrower.Role},
	}
	if data.Borrower.Kelas != "" {
		rows = append(rows, []string{"Kelas / Jurusan", joinNonEmpty(data.Borrower.Kelas, data.Borrower.Jurusan)})
	}
	rows = append(rows,
		[]string{"Alat", data.Item.Nama},
		[]string{"Jumlah", fmt.Sprintf("%d unit", data.Item.Jumlah)},
		[]string{"Keperluan", truncate(data.Keperluan, 70)},
		[]string{"Tanggal Pinjam", FormatTanggal(data.TanggalPinjam)},
		[]string{"Rencana Kembali", FormatTanggal(data.RencanaKembali)},
	)
	if data.TanggalKembali != nil {
		rows = append(rows, []string{"Dikembalikan", FormatTanggal(*data.TanggalKembali)})
	}
	rows = append(rows, []string{"Status", data.Status})

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(35, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(4, 6, ":", "", 0, "C", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	currentY := pdf.GetY()
	if len(data.QRCodePNG) > 0 {
		pdf.SetXY(12, currentY)
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(40, 4, "Scan untuk verifikasi:", "", 1, "L", false, 0, "")

		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qrcode", opts, bytes.NewReader(data.QRCodePNG))
		pdf.ImageOptions("qrcode", 12, currentY+5, 32, 32, false, opts, 0, "")
	}

	signX := 86.0
	pdf.SetXY(signX, currentY)
	pdf.SetFont("Arial", "", 9)
	approved := "-"
	if data.DisetujuiPada != nil {
		approved = FormatTanggal(*data.DisetujuiPada)
	}
	pdf.CellFormat(50, 5, fmt.Sprintf("Disetujui, %s", approved), "", 1, "C", false, 0, "")
	pdf.SetX(signX)
	pdf.CellFormat(50, 5, "Petugas Bengkel,", "", 1, "C", false, 0, "")
	pdf.Ln(14)
	pdf.SetX(signX)
	pdf.CellFormat(50, 5, "(______________________)", "", 1, "C", false, 0, "")

	pdf.SetY(-14)
	pdf.SetFont("Arial", "I", 6)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 4,
		fmt.Sprintf("Dicetak %s | Tunjukkan slip ini saat mengambil dan mengembalikan alat",
			data.PrintedAt.Format("02/01/2006 15:04")),
		"", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("gagal generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// SlipNumber nomor slip format PJM/{YYYYMMDD}/{8 karakter awal ID}
func SlipNumber(loanID string, date time.Time) string {
	short := loanID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("PJM/%s/%s", date.Format("20060102"), short)
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " / " + b
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

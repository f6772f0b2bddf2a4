package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleItem struct {
	AlatID string `json:"alat_id" validate:"required,uuid"`
	Jumlah int    `json:"jumlah" validate:"required,min=1"`
}

type sampleRequest struct {
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,password"`
	Stok     *int         `json:"stok" validate:"required,min=0"`
	Items    []sampleItem `json:"items" validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	negative := -1
	errs := ValidateStruct(sampleRequest{
		Email:    "bukan-email",
		Password: "pendek",
		Stok:     &negative,
		Items:    []sampleItem{{AlatID: "x", Jumlah: 0}},
	})

	assert.True(t, errs.HasErrors())
	assert.Equal(t, "Format email tidak valid", errs["email"])
	assert.Contains(t, errs["password"], "minimal 8")
	assert.Equal(t, "Nilai minimal 0", errs["stok"])
	assert.Equal(t, "ID tidak valid", errs["items[0].alat_id"])
	assert.Equal(t, "Wajib diisi", errs["items[0].jumlah"])
}

func TestValidateStructOK(t *testing.T) {
	zero := 0
	errs := ValidateStruct(sampleRequest{
		Email:    "budi@sekolah.sch.id",
		Password: "rahasia123",
		Stok:     &zero,
		Items:    []sampleItem{{AlatID: "3f2a9c1d-1111-4222-8333-444455556666", Jumlah: 1}},
	})
	assert.Nil(t, errs)
	assert.False(t, errs.HasErrors())
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("bengkel2026"))
	assert.False(t, IsValidPassword("bengkelku"))
	assert.False(t, IsValidPassword("12345678"))
	assert.False(t, IsValidPassword("a1"))
}

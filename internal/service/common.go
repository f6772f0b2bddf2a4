package service

import (
	"github.com/google/uuid"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

// Sumber event realtime
const (
	SourceLoan    = "loan"
	SourceAccount = "account"
	SourceItem    = "item"
)

// StatsNotifier memberi tahu dashboard admin bahwa angka statistik berubah.
type StatsNotifier interface {
	NotifyStatsChanged(source string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatsChanged(string) {}

func notifierOrNop(n StatsNotifier) StatsNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

var errInvalidID = apperror.Validation("ID tidak valid")

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return uid, nil
}

// validateRequest menjalankan tag validate pada DTO.
func validateRequest(req interface{}) error {
	if errs := utils.ValidateStruct(req); errs.HasErrors() {
		return apperror.ValidationFields("Validasi gagal", errs)
	}
	return nil
}

// storeError membungkus error repository menjadi error domain.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case repository.IsUniqueViolation(err):
		return apperror.Conflict("data sudah terdaftar")
	case repository.IsCheckViolation(err):
		return apperror.Validation("data melanggar batasan yang berlaku")
	}
	return apperror.Store(err, repository.IsTransient(err))
}

func normalizePage(page, perPage, defaultPerPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

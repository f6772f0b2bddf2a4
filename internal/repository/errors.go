package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation true jika err berasal dari pelanggaran constraint UNIQUE.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

// IsCheckViolation true jika err berasal dari constraint CHECK, misalnya jumlah >= 0.
func IsCheckViolation(err error) bool {
	return pgCode(err) == pgerrcode.CheckViolation
}

// IsTransient melaporkan apakah kegagalan bersifat sementara sehingga
// operasi aman untuk diulang.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	code := pgCode(err)
	if code == "" {
		// bukan error server: koneksi putus, timeout jaringan, dll.
		return true
	}
	return pgerrcode.IsTransactionRollback(code) ||
		pgerrcode.IsConnectionException(code) ||
		pgerrcode.IsInsufficientResources(code) ||
		code == pgerrcode.LockNotAvailable ||
		code == pgerrcode.AdminShutdown
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

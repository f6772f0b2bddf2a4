package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

const (
	changeStockSQL  = "UPDATE alat SET jumlah = GREATEST(jumlah + $2, 0), updated_at = NOW() WHERE id = $1 RETURNING jumlah"
	correctStockSQL = "UPDATE alat SET jumlah = jumlah + $2, updated_at = NOW() WHERE id = $1 AND jumlah + $2 >= 0 RETURNING jumlah"
	itemExistsSQL   = "SELECT EXISTS(SELECT 1 FROM alat WHERE id = $1)"
)

func TestChangeStockClampsInOneStatement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(changeStockSQL)).
		WithArgs(id, -4).
		WillReturnRows(sqlmock.NewRows([]string{"jumlah"}).AddRow(0))

	jumlah, err := repo.ChangeStock(context.Background(), id, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, jumlah)
}

func TestChangeStockReturnsNewAmount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(changeStockSQL)).
		WithArgs(id, 3).
		WillReturnRows(sqlmock.NewRows([]string{"jumlah"}).AddRow(10))

	jumlah, err := repo.ChangeStock(context.Background(), id, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, jumlah)
}

func TestChangeStockMissingItem(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(changeStockSQL)).
		WithArgs(id, -1).
		WillReturnRows(sqlmock.NewRows([]string{"jumlah"}))

	_, err := repo.ChangeStock(context.Background(), id, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangeStockPropagatesDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	id := uuid.New()
	boom := errors.New("connection reset by peer")

	mock.ExpectQuery(regexp.QuoteMeta(changeStockSQL)).
		WithArgs(id, -1).
		WillReturnError(boom)

	_, err := repo.ChangeStock(context.Background(), id, -1)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsTransient(err))
}

func TestCorrectStock(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		delta   int
		setup   func(mock sqlmock.Sqlmock)
		want    int
		wantErr error
	}{
		{
			name:  "koreksi berhasil",
			delta: 2,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(correctStockSQL)).
					WithArgs(id, 2).
					WillReturnRows(sqlmock.NewRows([]string{"jumlah"}).AddRow(7))
			},
			want: 7,
		},
		{
			name:  "stok tidak cukup",
			delta: -9,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(correctStockSQL)).
					WithArgs(id, -9).
					WillReturnRows(sqlmock.NewRows([]string{"jumlah"}))
				mock.ExpectQuery(regexp.QuoteMeta(itemExistsSQL)).
					WithArgs(id).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: ErrInsufficientStock,
		},
		{
			name:  "alat tidak ada",
			delta: -1,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(correctStockSQL)).
					WithArgs(id, -1).
					WillReturnRows(sqlmock.NewRows([]string{"jumlah"}))
				mock.ExpectQuery(regexp.QuoteMeta(itemExistsSQL)).
					WithArgs(id).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			got, err := NewItemRepository(db).CorrectStock(context.Background(), id, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindAvailableFiltersBorrowableLabels(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM alat WHERE jumlah > 0 AND status_stok IN ($1, $2) ORDER BY kategori ASC NULLS LAST, nama ASC")).
		WithArgs("aman", "hampir_habis").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nama", "jumlah", "status_stok"}).
			AddRow(id.String(), "Tang", 3, "hampir_habis"))

	items, err := repo.FindAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, model.StockLow, items[0].StatusStok)
}

func TestCountAvailable(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alat WHERE jumlah > 0 AND status_stok IN ($1, $2)")).
		WithArgs("aman", "hampir_habis").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewItemRepository(db).CountAvailable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestDeleteMissingItem(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM alat WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewItemRepository(db).Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

const itemColumns = `
	id, nama, jumlah, kondisi, status_stok, deskripsi, gambar_url, kategori,
	tanggal_ditambahkan, updated_at`

type ItemRepository interface {
	FindAll(ctx context.Context, filter model.ItemFilter) ([]*model.Item, int64, error)
	// FindAvailable katalog peminjam: stok > 0 dan label aman/hampir_habis.
	FindAvailable(ctx context.Context) ([]*model.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	Create(ctx context.Context, item *model.Item) error
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateImage(ctx context.Context, id uuid.UUID, path string) error
	// ChangeStock menambah delta ke jumlah dengan batas bawah nol dalam satu
	// statement dan mengembalikan jumlah baru.
	ChangeStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	// CorrectStock seperti ChangeStock tetapi menolak hasil negatif dengan
	// ErrInsufficientStock.
	CorrectStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	Count(ctx context.Context) (int64, error)
	CountAvailable(ctx context.Context) (int64, error)
}

type itemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) FindAll(ctx context.Context, filter model.ItemFilter) ([]*model.Item, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(nama ILIKE $%d OR deskripsi ILIKE $%d)", argIdx, argIdx+1))
		search := "%" + filter.Search + "%"
		args = append(args, search, search)
		argIdx += 2
	}

	if filter.Kategori != "" {
		conditions = append(conditions, fmt.Sprintf("kategori = $%d", argIdx))
		args = append(args, filter.Kategori)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")
	q := conn(ctx, r.db)

	var total int64
	if err := sqlx.GetContext(ctx, q, &total, fmt.Sprintf("SELECT COUNT(*) FROM alat WHERE %s", where), args...); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT %s
		FROM alat
		WHERE %s
		ORDER BY nama ASC
		LIMIT $%d OFFSET $%d
	`, itemColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PerPage, offset)

	items := []*model.Item{}
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) FindAvailable(ctx context.Context) ([]*model.Item, error) {
	query, args, err := availableQuery("SELECT " + itemColumns + " FROM alat", "ORDER BY kategori ASC NULLS LAST, nama ASC")
	if err != nil {
		return nil, err
	}
	items := []*model.Item{}
	err = sqlx.SelectContext(ctx, conn(ctx, r.db), &items, query, args...)
	return items, err
}

func (r *itemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	found, err := getOne(ctx, conn(ctx, r.db), &item, "SELECT "+itemColumns+" FROM alat WHERE id = $1", id)
	if err != nil || !found {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	query := `
		INSERT INTO alat (id, nama, jumlah, kondisi, status_stok, deskripsi, gambar_url, kategori,
		                  tanggal_ditambahkan, updated_at)
		VALUES (:id, :nama, :jumlah, :kondisi, :status_stok, :deskripsi, :gambar_url, :kategori,
		        :tanggal_ditambahkan, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, item)
	return err
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	query := `
		UPDATE alat SET
			nama = :nama, jumlah = :jumlah, kondisi = :kondisi, status_stok = :status_stok,
			deskripsi = :deskripsi, gambar_url = :gambar_url, kategori = :kategori,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, conn(ctx, r.db), query, item)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM alat WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *itemRepository) UpdateImage(ctx context.Context, id uuid.UUID, path string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE alat SET gambar_url = $2, updated_at = NOW() WHERE id = $1", id, path)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *itemRepository) ChangeStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var jumlah int
	found, err := getOne(ctx, conn(ctx, r.db), &jumlah, `
		UPDATE alat SET jumlah = GREATEST(jumlah + $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING jumlah
	`, id, delta)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	return jumlah, nil
}

func (r *itemRepository) CorrectStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	q := conn(ctx, r.db)

	var jumlah int
	found, err := getOne(ctx, q, &jumlah, `
		UPDATE alat SET jumlah = jumlah + $2, updated_at = NOW()
		WHERE id = $1 AND jumlah + $2 >= 0
		RETURNING jumlah
	`, id, delta)
	if err != nil {
		return 0, err
	}
	if found {
		return jumlah, nil
	}

	// Bedakan alat tidak ada dengan stok tidak cukup
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, "SELECT EXISTS(SELECT 1 FROM alat WHERE id = $1)", id); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientStock
}

func (r *itemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &count, "SELECT COUNT(*) FROM alat")
	return count, err
}

func (r *itemRepository) CountAvailable(ctx context.Context) (int64, error) {
	query, args, err := availableQuery("SELECT COUNT(*) FROM alat", "")
	if err != nil {
		return 0, err
	}
	var count int64
	err = sqlx.GetContext(ctx, conn(ctx, r.db), &count, query, args...)
	return count, err
}

// availableQuery menyusun filter katalog dari model.BorrowableStock.
func availableQuery(head, tail string) (string, []interface{}, error) {
	labels := make([]string, len(model.BorrowableStock))
	for i, l := range model.BorrowableStock {
		labels[i] = string(l)
	}
	query, args, err := sqlx.In(head+" WHERE jumlah > 0 AND status_stok IN (?) "+tail, labels)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args, nil
}

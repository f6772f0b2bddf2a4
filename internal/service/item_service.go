package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

var (
	ErrItemNotFound         = apperror.NotFound("alat tidak ditemukan")
	ErrItemHasOpenLoans     = apperror.InvalidState("alat masih memiliki peminjaman yang belum selesai")
	ErrStockWouldGoNegative = apperror.Validation("stok tidak boleh kurang dari 0")
	ErrImageTypeNotAllowed  = apperror.Validation("Format gambar tidak didukung. Gunakan JPG, PNG, GIF, atau WEBP")
	ErrImageTooLarge        = apperror.Validation("Ukuran gambar maksimal 5MB")
)

type ItemService interface {
	List(ctx context.Context, filter model.ItemFilter) ([]*model.Item, *response.Pagination, error)
	Catalog(ctx context.Context) ([]*model.Item, error)
	GetByID(ctx context.Context, id string) (*model.Item, error)
	Create(ctx context.Context, req model.ItemRequest) (*model.Item, error)
	Update(ctx context.Context, id string, req model.ItemRequest) (*model.Item, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, id, filename string, data []byte, contentType string) (*model.Item, error)
	// ResolveImage mengubah path objek menjadi URL publik; nil jika path kosong.
	ResolveImage(path *string) *string
	AdjustStock(ctx context.Context, id string, delta int) (*model.Item, error)
}

type itemService struct {
	repo     repository.ItemRepository
	loans    repository.LoanRepository
	tx       repository.Transactor
	storage  utils.ObjectStore
	notifier StatsNotifier
	log      *slog.Logger
}

func NewItemService(
	repo repository.ItemRepository,
	loans repository.LoanRepository,
	tx repository.Transactor,
	storage utils.ObjectStore,
	notifier StatsNotifier,
	log *slog.Logger,
) ItemService {
	return &itemService{
		repo:     repo,
		loans:    loans,
		tx:       tx,
		storage:  storage,
		notifier: notifierOrNop(notifier),
		log:      log,
	}
}

func (s *itemService) List(ctx context.Context, filter model.ItemFilter) ([]*model.Item, *response.Pagination, error) {
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage, 20)

	items, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err)
	}
	s.withImageURLs(items...)
	return items, response.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *itemService) Catalog(ctx context.Context) ([]*model.Item, error) {
	items, err := s.repo.FindAvailable(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	s.withImageURLs(items...)
	return items, nil
}

func (s *itemService) GetByID(ctx context.Context, id string) (*model.Item, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.withImageURLs(item)
	return item, nil
}

func (s *itemService) find(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *itemService) Create(ctx context.Context, req model.ItemRequest) (*model.Item, error) {
	if err := normalizeItemRequest(&req); err != nil {
		return nil, err
	}

	now := time.Now()
	item := &model.Item{
		ID:                 uuid.New(),
		TanggalDitambahkan: now,
	}
	applyItemRequest(item, req, now)

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, storeError(err)
	}

	s.notifier.NotifyStatsChanged(SourceItem)
	s.withImageURLs(item)
	return item, nil
}

func (s *itemService) Update(ctx context.Context, id string, req model.ItemRequest) (*model.Item, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := normalizeItemRequest(&req); err != nil {
		return nil, err
	}

	item, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}

	// Gambar dikelola lewat endpoint upload; nil berarti pertahankan gambar lama
	if req.GambarURL == nil {
		req.GambarURL = item.GambarURL
	}
	applyItemRequest(item, req, time.Now())

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, storeError(err)
	}

	s.notifier.NotifyStatsChanged(SourceItem)
	s.withImageURLs(item)
	return item, nil
}

func (s *itemService) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	var imagePath *string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.find(ctx, uid)
		if err != nil {
			return err
		}

		open, err := s.loans.CountOpenByItem(ctx, uid)
		if err != nil {
			return storeError(err)
		}
		if open > 0 {
			return ErrItemHasOpenLoans
		}

		if err := s.repo.Delete(ctx, uid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrItemNotFound
			}
			return storeError(err)
		}
		imagePath = item.GambarURL
		return nil
	})
	if err != nil {
		return storeError(err)
	}

	if imagePath != nil && *imagePath != "" {
		s.removeObject(ctx, *imagePath)
	}
	s.notifier.NotifyStatsChanged(SourceItem)
	return nil
}

func (s *itemService) UploadImage(ctx context.Context, id, filename string, data []byte, contentType string) (*model.Item, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if _, ok := utils.AllowedImageTypes[contentType]; !ok {
		return nil, ErrImageTypeNotAllowed
	}
	if len(data) > utils.MaxImageSize {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, apperror.Validation("file gambar kosong")
	}

	item, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}

	key := utils.ImageObjectName(filename, time.Now())
	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		return nil, apperror.Store(err, true)
	}

	if err := s.repo.UpdateImage(ctx, uid, key); err != nil {
		// Jangan tinggalkan objek yatim
		s.removeObject(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, storeError(err)
	}

	if old := item.GambarURL; old != nil && *old != "" && *old != key {
		s.removeObject(ctx, *old)
	}

	item.GambarURL = &key
	s.withImageURLs(item)
	return item, nil
}

func (s *itemService) ResolveImage(path *string) *string {
	if path == nil || strings.TrimSpace(*path) == "" {
		return nil
	}
	// URL absolut (data lama) dikembalikan apa adanya
	if strings.HasPrefix(*path, "http://") || strings.HasPrefix(*path, "https://") {
		url := *path
		return &url
	}
	url := s.storage.PublicURL(*path)
	return &url
}

func (s *itemService) AdjustStock(ctx context.Context, id string, delta int) (*model.Item, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperror.ValidationFields("perubahan stok tidak boleh 0", map[string]string{"delta": "Wajib diisi"})
	}

	jumlah, err := s.repo.CorrectStock(ctx, uid, delta)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrItemNotFound
	case errors.Is(err, repository.ErrInsufficientStock):
		return nil, ErrStockWouldGoNegative
	case err != nil:
		return nil, storeError(err)
	}

	s.log.Info("stock corrected", "item_id", uid, "delta", delta, "jumlah", jumlah)
	s.notifier.NotifyStatsChanged(SourceItem)

	item, err := s.find(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.withImageURLs(item)
	return item, nil
}

func (s *itemService) withImageURLs(items ...*model.Item) {
	for _, item := range items {
		item.GambarPublicURL = s.ResolveImage(item.GambarURL)
	}
}

func (s *itemService) removeObject(ctx context.Context, key string) {
	if err := s.storage.Remove(ctx, key); err != nil {
		s.log.Warn("failed to remove image object", "key", key, "error", err)
	}
}

// normalizeItemRequest validasi dan isi default kondisi/status_stok.
func normalizeItemRequest(req *model.ItemRequest) error {
	req.Nama = utils.SanitizeString(req.Nama)
	if req.Kondisi == "" {
		req.Kondisi = model.ConditionNew
	}
	if req.StatusStok == "" {
		req.StatusStok = model.StockAvailable
	}

	if err := validateRequest(req); err != nil {
		return err
	}

	fields := map[string]string{}
	if req.Jumlah == nil || *req.Jumlah < 0 {
		fields["jumlah"] = "Jumlah harus bilangan bulat tidak negatif"
	}
	if !req.Kondisi.Valid() {
		fields["kondisi"] = fmt.Sprintf("Kondisi tidak dikenal: %s", req.Kondisi)
	}
	if !req.StatusStok.Valid() {
		fields["status_stok"] = fmt.Sprintf("Status stok tidak dikenal: %s", req.StatusStok)
	}
	if len(fields) > 0 {
		return apperror.ValidationFields("Validasi gagal", fields)
	}
	return nil
}

func applyItemRequest(item *model.Item, req model.ItemRequest, now time.Time) {
	item.Nama = req.Nama
	item.Jumlah = *req.Jumlah
	item.Kondisi = req.Kondisi
	item.StatusStok = req.StatusStok
	item.Deskripsi = utils.SanitizeString(req.Deskripsi)
	item.Kategori = nil
	if req.Kategori != nil {
		item.Kategori = strPtr(utils.SanitizeString(*req.Kategori))
	}
	item.GambarURL = req.GambarURL
	item.UpdatedAt = now
}
